// Package core provides the fundamental types and interfaces for the postplan package.
//
// This package contains:
//   - TimeOfDay and Date value types used for slot and calendar arithmetic
//   - TimeSlot, ContentItem and Assignment data models with GORM annotations
//   - Store interface defining the persistence contract
//   - Event types for queue monitoring
//   - Error values for scheduling and lifecycle failures
//
// Most users should import the root package github.com/postplanner/postplan
// instead of this package directly.
package core
