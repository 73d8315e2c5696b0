// Package timeseries holds the monthly price series used by the dashboard
// and the transformations applied to it: linear gap interpolation,
// calendar-month resampling, range slicing, summary statistics and the
// classical additive seasonal decomposition.
//
// Missing observations are represented as NaN throughout.
package timeseries
