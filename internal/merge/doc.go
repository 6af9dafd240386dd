// Package merge builds the campaign master dataset from the Google Ads
// exports.
//
// The dataset is produced in four passes, each writing its own CSV so that
// a pass can be rerun on its own:
//
//	BuildMaster  anchor metrics joined with every segmented export
//	CleanHR      restricted to the Croatian market
//	Standardize  brand, format, target, period, bid and goal labels
//	Finalize     manual format fixes, quarter assignment and cleanup
//
// Every pass is a pure function over in-memory rows and returns the
// figures its report prints alongside the rows.
package merge
