// Package bench measures repeated task execution.
//
// The worker side runs Trials: one untimed execution establishes the reference
// answer, then every timed trial must reproduce it byte-for-byte.
//
// The runner side runs Measure against a Bencher (normally a supervised worker):
//   - explicit iteration count: one batch of that size
//   - time budget: a single first sample, then either that sample alone, or a
//     calibration batch of 10 trimmed to its fastest 7, sizes the final batch
//     so that it fills the budget, capped at MaxIterations
//
// The final samples are sorted, the slowest are trimmed (see TrimCount), and the
// mean and median of what remains are reported.
package bench
