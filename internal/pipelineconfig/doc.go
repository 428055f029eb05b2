// Package pipelineconfig loads the YAML parameter set of the fact
// pipeline (table specs, merge order, model parameters, score weights,
// rule thresholds) and the ticker list.
package pipelineconfig
