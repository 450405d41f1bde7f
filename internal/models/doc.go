// Package models defines the core domain models for the shared-expense ledger.
//
// # Models
//
//   - User: registered account (first/last name, email, phone)
//   - Group: a named set of members that share expenses
//   - Expense: one payment by a member, with a per-member split
//   - Settlement: a payment from one user to another that reduces debt
//   - Balance: the single net ledger edge between two users
//   - Reminder: a "please pay" notification from creditor to debtor
//
// # Conventions
//
//  1. Relationships are ID strings, never pointers.
//  2. Timestamps are Unix seconds.
//  3. Amounts are decimal.Decimal rounded to cents before they are stored.
//  4. A Balance is keyed by an ordered pair (UserA < UserB) and carries one
//     signed Net value. Positive Net means UserB owes UserA.
package models
