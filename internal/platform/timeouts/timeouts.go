// Package timeouts defines the shared timeouts of the simlab processes.
package timeouts

import "time"

// GRPCDial caps the wait for the simulation server to become healthy.
const GRPCDial = 10 * time.Second

// ScenarioStep caps a single scenario step, including its simulation call.
const ScenarioStep = 10 * time.Second

// Shutdown limits how long telemetry exporters may flush on exit.
const Shutdown = 5 * time.Second
