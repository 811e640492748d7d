// Package bandit provides reference multi-armed bandit agents.
//
// The agents here are the known-correct implementations the grading fixtures
// were captured from. They satisfy the capability interfaces in
// package candidate, so the harness can grade them like any submission,
// which is how the fixtures are kept honest.
//
// All stochastic agents draw from a golang.org/x/exp/rand source seeded at
// construction and re-seedable through Seed.
package bandit
