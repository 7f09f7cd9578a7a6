// Command server runs the backend with its tracing core enabled. All
// configuration comes from the environment (see internal/infrastructure/
// config); the -port flag overrides PORT for local runs.
package main
