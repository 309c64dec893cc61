// Package entities defines the GORM models for the operational state tables.
//
// All four tables are owned by the relational store. Nothing here is cached
// in process; repositories read and write rows on every call.
package entities
