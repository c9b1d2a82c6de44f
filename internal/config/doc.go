// Package config defines the options of a metahunter run, their defaults,
// and the optional .metahunter YAML file that overrides them.
package config
