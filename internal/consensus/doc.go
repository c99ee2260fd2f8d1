// Package consensus aggregates independent backend verdicts into a single
// quality decision by plain majority vote.
package consensus
