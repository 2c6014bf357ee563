// Package models defines the core domain records for splitsnap.
//
// # Records
//
//   - Group: a set of members who share expenses
//   - Receipt: a purchase with line items assigned to members
//   - Item: one line of a receipt
//   - Settlement: a recorded payment between two members
//
// Members are identified by string ids that are unique within a group. All
// amounts are integer cents (money.Cents); nothing in this package uses
// floating point.
//
// # Design Principles
//
//  1. Records are plain data: derived values (allocations, balances) are
//     computed by the calculator and ledger packages, never stored here.
//  2. Relationships use ID strings instead of pointers.
//  3. Settlements are append-only. A correction is a new record that
//     supersedes an earlier one.
package models
