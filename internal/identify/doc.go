// Package identify locates steps in plant test data and fits low-order
// process models to the response.
//
// Fitting is a profiled least-squares grid search: the nonlinear parameters
// (dead time and time constants) are enumerated on a grid, and for each grid
// point the gain and baseline are solved exactly by linear regression. The
// grid point with the smallest sum of squared errors wins. There is no
// iterative optimiser, so a fit never fails to converge; a poor fit shows up
// as a high SSE or low R2 in [Stats].
package identify
