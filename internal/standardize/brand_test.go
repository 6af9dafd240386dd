package standardize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSmartBrand(t *testing.T) {
	tests := []struct {
		campaign, account, want string
	}{
		{"VID_OMD_HR_McDonalds_Summer", "OMD Croatia", "McDonald's"},
		{"Promo", "McDonald's Hrvatska", "McDonald's"},
		{"Kaufland Akcija", "", "Kaufland"},
		{"Nivea Sun", "Beiersdorf HR", "Nivea (Beiersdorf)"},
		{"WEISSER Riese gel", "Henkel", "Weisser Riese (Henkel)"},
		{"got2b launch", "Henkel", "got2b (Henkel)"},
		{"Porsche Taycan", "Agency", "Agency"},
		{"Launch", "Porsche Inter Auto", "Porsche (Auto)"},
		{"jgl promo", "Agency_HR", "Agency"},
		{"Reflustat Q1", "Agency_HR", "Reflustat (JGL)"},
		{"Brand", "reflustat account", "reflustat account"},
		{"Promo", "", "Unknown"},
		{"Promo", "Averyveryverylongaccountnamewithoutunderscores", "Averyveryverylongaccountnamewi"},
	}
	for _, tt := range tests {
		t.Run(tt.campaign+"/"+tt.account, func(t *testing.T) {
			assert.Equal(t, tt.want, SmartBrand(tt.campaign, tt.account))
		})
	}
}

func TestAccountBrand(t *testing.T) {
	got := map[string]string{
		"nivea":   AccountBrand("Beiersdorf", "Nivea Sun"),
		"weisser": AccountBrand("Henkel", "Weisser Riese"),
		"split":   AccountBrand("Podravka//HR_2025", "Vegeta"),
		"empty":   AccountBrand("", "Vegeta"),
		"long":    AccountBrand("Konzum Plus Digital Croatia", "Promo"),
	}
	want := map[string]string{
		"nivea":   "Nivea",
		"weisser": "Weisser Riese",
		"split":   "Podravka",
		"empty":   "Unknown",
		"long":    "Konzum Plus Digital ",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AccountBrand mismatch (-want +got):\n%s", diff)
	}
}

func TestNameBrand(t *testing.T) {
	assert.Equal(t, "Garnier", NameBrand("VID_OMD_HR_garnier_fructis"))
	assert.Equal(t, "Podravka", NameBrand("VID_OMD_HR_Podravka_Q1"))
	assert.Equal(t, "Vegeta", NameBrand("HR_Vegeta"))
	assert.Equal(t, "Summer", NameBrand("Summer campaign"))
	assert.Equal(t, "Unknown", NameBrand(""))
}

func TestStructuredBrand(t *testing.T) {
	assert.Equal(t, "Podravka", StructuredBrand("VID_OMD_HR_Podravka_Q1"))
	assert.Equal(t, "NiveaSun", StructuredBrand("HR_Promo_NiveaSun"))
	assert.Equal(t, "Promo", StructuredBrand("HR_Promo_Other"))
	assert.Equal(t, "Single", StructuredBrand("Single"))
}

func TestFixCroatiaBrand(t *testing.T) {
	assert.Equal(t, "Bison", FixCroatiaBrand("Croatia", "BISON Croatia"))
	assert.Equal(t, "Ceresit", FixCroatiaBrand("Croatia", "Henkel Ceresit"))
	assert.Equal(t, "Hidra", FixCroatiaBrand("Croatia", "Hidra d.o.o._HR"))
	assert.Equal(t, "Nivea", FixCroatiaBrand("Nivea", "BISON"))
}
