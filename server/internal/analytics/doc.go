// Package analytics derives organizational health signals from an orgtree
// snapshot.
//
// score.go computes the achievement score of a unit: per quarter
// actual/target*100 capped at 120, averaged per metric, then averaged across
// metrics. A unit without a usable quarter has no score, which is distinct
// from a score of 0.
//
// headcount.go sums authorized seats and filled role records over a subtree.
//
// audit.go classifies one unit at a time: staffing (Critical at 100% vacant
// role records, Warning above 30%) and performance (Critical below 60).
// diagnostics.go runs both auditors over the whole tree in pre-order.
//
// locate.go finds a unit by name and builds its performance report:
// Healthy ≥90, At Risk 60–89, Critical <60, No Data.
//
// Every function is a pure function of the tree it is given. Accumulators are
// local to each call; nothing is retained between calls.
package analytics
