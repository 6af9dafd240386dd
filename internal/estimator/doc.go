// Package estimator answers "what did comparable campaigns cost and reach"
// over the cleaned master dataset.
//
// Build parses the master metrics, overlays the 90 day rolling peak reach
// and infers each campaign's real audience from its demographic spend.
// Apply narrows the dataset with an EstimatorFilter; Summarize and
// BuildTable turn a selection into the totals and grid the dashboard shows.
package estimator
