// Package models defines the core domain models for Star Lotto.
//
// # Models
//
//   - Room: a matchmaking unit holding up to the configured capacity of
//     participants at one entry fee
//   - Participant: a paying entrant, attached to exactly one room
//   - SettlementRecord: the outcome of a room's draw (winner + split)
//   - Transaction: an immutable, append-only ledger audit entry
//   - User: a known player, keyed by Telegram identity
//
// # Invariants
//
//  1. A room never holds more participants than its capacity.
//  2. TotalPool == EntryFee * len(Participants) at all times.
//  3. Status only moves forward: waiting -> drawing -> completed, or
//     waiting -> expired for rooms that never fill.
//  4. A user appears at most once per room, and in at most one
//     non-completed room across the whole registry.
//  5. WinnerAmount + HouseAmount == TotalPool exactly; the house fee is
//     the remainder, not a separately rounded fraction.
//
// The error taxonomy in errors.go is shared by the registry, the
// services, and the HTTP layer.
package models
