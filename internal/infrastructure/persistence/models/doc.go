// Package models holds the GORM row types for orders, order items, proposals
// and transports, and maps them to and from the ordering domain. Domain types
// carry no ORM tags. The schema itself lives in the root migrations package;
// tests create it with AutoMigrate against sqlite.
package models
