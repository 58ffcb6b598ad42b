// Package induction recognizes induction variables in loops and proves
// which one, if any, governs a loop's exit.
//
// A Variable is recognized from a header merge node the recurrence oracle
// classifies as an affine recurrence; its cycle members are collected by
// walking data dependences inside the strongly connected component of the
// header node. A Set holds every recognized variable per loop, plus at most
// one governing variable: the variable whose comparison directly controls
// the loop's exit branch, established by Attribute's well-formedness proof.
package induction
