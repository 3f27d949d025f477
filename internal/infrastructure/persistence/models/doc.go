// Package models holds the GORM rows behind the billing and identity aggregates.
// Domain types carry no tags; each model converts with ToDomain and FromDomain.
// Money columns use decimal(12,2) and calendar dates use date columns.
package models
