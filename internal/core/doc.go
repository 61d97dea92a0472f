// Package core provides the cleaning and reconciliation logic for e-commerce
// CSV data: customers, products and orders.
//
// This package is independent of any file, network or UI layer. It can be
// used by the batch CLI, the HTTP server, the stream consumer, or tests
// without modification.
//
// # Absent Values
//
// Every optional field is a pgtype nullable value (pgtype.Int8, pgtype.Text,
// pgtype.Timestamptz, pgtype.Numeric). Valid=false means the input had no
// usable data, which is never the same as zero or "". Field coercions such as
// [ParseInt], [ParseDate], [NormalizePhone] and [RoundMoneyString] never
// return errors.
//
// # Stages
//
// A run processes one dataset in five stages, each producing a fresh slice:
//
//  1. Field normalizers: [NormalizeEmail], [NormalizePhone], [ParseDate], [RoundMoney]
//  2. [CleanCustomers]: drop rows without id or name, order by signup date,
//     keep the earliest customer per [CustomerDedupKey]
//  3. [CleanProducts]: drop rows without id or name, keep the first row per id
//  4. [ReconcileOrders]: drop orders referencing unknown customers or
//     products, compute order_value, backfill timestamps, keep the earliest
//     row per order id
//  5. [Analyze]: counts, top products by revenue, revenue per month
//
// [Run] wires the stages together and validates [Options].
//
// # Money
//
// Amounts are exact decimals. [RoundMoney] rounds half-up (away from zero) so
// 2.005 becomes 2.01.
//
// # Table Registry
//
// The three tables are registered at init time by package tables using
// [Register]. A [TableDefinition] lists column order and the identity columns
// a source must carry.
package core
