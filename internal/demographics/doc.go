// Package demographics infers the age range and gender a campaign actually
// reached from its age × gender spend rows.
//
// FullRange keeps only the segments holding at least a threshold share of
// spend (10% by default) so that optimizer noise does not widen a "25-34"
// campaign into "18-65+". Dominant is the older single-segment rule.
package demographics
