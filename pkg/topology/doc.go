// Package topology parses and validates the deploy declaration that wires
// pulse-app, pulse-collector, and pulse-board together: a compose-style
// YAML file naming each service's image or build source, published ports,
// network membership, restart policy, and persistent volumes.
//
// Validation is static. It checks the bootstrap contract — every service
// declares a runnable source, referenced networks and volumes exist, and
// services that must talk to each other share at least one network — but
// deliberately says nothing about startup order: the collector tolerates
// absent targets and the board tolerates an absent collector, so order
// does not matter at runtime.
package topology
