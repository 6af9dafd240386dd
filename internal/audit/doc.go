// Package audit checks the loaded exports and the pipeline outputs for
// spend and coverage problems.
//
// Each audit is a pure function over an Input. It returns a Report of headed
// sections plus the issues and warnings it found; any issue fails the
// report. Reports render as terminal text (Format), as JSON through the HTTP
// API and as workbook sheets through the exporter. Audits that produce a
// review list attach it as an Export for the caller to write.
//
//	r, err := audit.Run("integrity", &audit.Input{Bundle: bundle})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(r.Verdict())
package audit
