// Package core provides shared data models for the ingestion engine.
//
// The types here are the contracts between the planner, the orchestrator,
// the connectors and the persistence layer. They carry no behaviour beyond
// small helpers; all pipeline logic lives in the dedicated packages.
package core
