// Package standardize holds the naming rules that turn raw Google Ads
// campaign rows into standardized labels: brand, ad format, bid strategy,
// goal, date range, quarter and demographic target.
//
// Every rule is a pure function over strings. Brand rules are ordered
// tables of lowercase tokens matched against the campaign name, the account
// name, or either. The first rule that matches wins.
package standardize
