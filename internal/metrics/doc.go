// Package metrics records build and rebuild metrics.
//
// Components take a Recorder and default to NoopRecorder, so nothing needs
// a nil check. When metrics are enabled in the configuration, the CLI
// builds a PrometheusRecorder on a fresh registry and the dev server
// exposes that registry through HTTPHandler.
//
// Recorded series, all under the sitebuilder namespace:
//
//	stage_duration_seconds{stage}
//	build_duration_seconds{mode}
//	build_outcomes_total{outcome}
//	item_results_total{processor,result}
//	rebuilds_total{kind}
//	store_items
package metrics
