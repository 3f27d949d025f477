// Package billing holds the water billing domain: the calculation engine
// (tariff pricing, mora accrual, date validation) and the invoice, payment,
// reading and client records it operates on.
//
// The engine is pure. Every tunable is passed in through EngineConfig and
// every evaluation date is an explicit argument.
package billing
