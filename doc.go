// Package goathena is a Go driver for the Amazon Athena query service.
//
// The driver exposes a DB-API style Cursor that submits SQL, polls the
// service until the execution reaches a terminal state, and pages the
// result set through typed value conversion. A thin database/sql/driver
// adapter is layered on top of the cursor core.
package goathena
