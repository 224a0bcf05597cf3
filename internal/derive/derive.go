// Package derive computes the rule-based secondary tables from the cleaned
// users, cards, and transactions tables: fraud_detection, vip_users, and
// blocked_users. Every derivation fully recomputes its output from the
// current cleaned tables; there is no merge with previous runs.
package derive

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Sanjarbek1024/Demo-project/pkg/records"
)

// Derived table names.
const (
	FraudTable   = "fraud_detection"
	VIPTable     = "vip_users"
	BlockedTable = "blocked_users"
)

// Rule constants emitted into the derived rows.
const (
	FraudReason   = "Amount exceeds card limit"
	FraudStatus   = "flagged"
	VIPReason     = "High balance"
	BlockedReason = "Negative balance"

	// VIPThreshold is exclusive: a balance exactly at the threshold does not
	// qualify.
	VIPThreshold = 500_000_000
)

// MissingColumnError reports that a cleaned table lacks a column required by
// a derivation rule. The failure is scoped to that one derivation.
type MissingColumnError struct {
	Derivation string
	Table      string
	Column     string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("derive %s: table %q missing required column %q",
		e.Derivation, e.Table, e.Column)
}

// TimestampLayouts are tried in order when re-coercing a transaction's
// created_at value for the fraud output.
var TimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
	"2006/01/02",
}

// Engine derives the secondary tables. Now supplies the processing time
// stamped into vip_users.assigned_at and blocked_users.blocked_at; it is a
// field so tests can pin it.
type Engine struct {
	Now func() time.Time
}

// New returns an Engine using the wall clock.
func New() *Engine { return &Engine{Now: time.Now} }

// Result carries the derived tables keyed by table name. A derivation that
// failed (missing required column) is absent from Tables and recorded in
// Errs; the other derivations are unaffected.
type Result struct {
	Tables map[string]*records.Table
	Errs   map[string]error
}

// Derive runs all three derivations against the cleaned tables. Each
// derivation succeeds or fails independently; Result reports both sides.
func (e *Engine) Derive(users, cards, transactions *records.Table) Result {
	res := Result{
		Tables: make(map[string]*records.Table, 3),
		Errs:   make(map[string]error),
	}

	if t, err := e.FraudDetection(transactions, cards); err != nil {
		res.Errs[FraudTable] = err
	} else {
		res.Tables[FraudTable] = t
	}
	if t, err := e.VIPUsers(users); err != nil {
		res.Errs[VIPTable] = err
	} else {
		res.Tables[VIPTable] = t
	}
	if t, err := e.BlockedUsers(cards); err != nil {
		res.Errs[BlockedTable] = err
	} else {
		res.Tables[BlockedTable] = t
	}
	return res
}

// FraudDetection inner-joins transactions to cards on
// transactions.from_card_id = cards.id and keeps rows where the transaction
// amount strictly exceeds the card limit. A transaction whose card has no
// match is excluded: no fraud row without a resolvable card limit.
func (e *Engine) FraudDetection(transactions, cards *records.Table) (*records.Table, error) {
	for _, col := range []string{"id", "from_card_id", "amount", "created_at"} {
		if !transactions.HasColumn(col) {
			return nil, &MissingColumnError{Derivation: FraudTable, Table: "transactions", Column: col}
		}
	}
	for _, col := range []string{"id", "limit_amount", "user_id"} {
		if !cards.HasColumn(col) {
			return nil, &MissingColumnError{Derivation: FraudTable, Table: "cards", Column: col}
		}
	}

	// Index cards by id for the join. Keys are canonicalized so a string id
	// from the source matches a synthesized integer id.
	byID := make(map[string]records.Record, cards.Len())
	for _, card := range cards.Rows {
		if id, ok := joinKey(card["id"]); ok {
			byID[id] = card
		}
	}

	out := records.NewTable("transaction_id", "from_card_id", "user_id", "reason", "status", "created_at")
	for _, txn := range transactions.Rows {
		cardID, ok := joinKey(txn["from_card_id"])
		if !ok {
			continue
		}
		card, ok := byID[cardID]
		if !ok {
			continue
		}
		amount, ok := txn.Float("amount")
		if !ok {
			continue
		}
		limit, ok := card.Float("limit_amount")
		if !ok {
			continue
		}
		if amount <= limit {
			continue
		}
		out.Append(records.Record{
			"transaction_id": txn["id"],
			"from_card_id":   txn["from_card_id"],
			"user_id":        card["user_id"],
			"reason":         FraudReason,
			"status":         FraudStatus,
			"created_at":     recoerceTime(txn["created_at"]),
		})
	}
	return out, nil
}

// VIPUsers keeps users whose total_balance strictly exceeds VIPThreshold.
func (e *Engine) VIPUsers(users *records.Table) (*records.Table, error) {
	for _, col := range []string{"id", "total_balance"} {
		if !users.HasColumn(col) {
			return nil, &MissingColumnError{Derivation: VIPTable, Table: "users", Column: col}
		}
	}

	now := e.Now()
	out := records.NewTable("user_id", "assigned_at", "reason")
	for _, user := range users.Rows {
		balance, ok := user.Float("total_balance")
		if !ok || balance <= VIPThreshold {
			continue
		}
		out.Append(records.Record{
			"user_id":     user["id"],
			"assigned_at": now,
			"reason":      VIPReason,
		})
	}
	return out, nil
}

// BlockedUsers keeps cards with a strictly negative balance.
func (e *Engine) BlockedUsers(cards *records.Table) (*records.Table, error) {
	for _, col := range []string{"id", "balance"} {
		if !cards.HasColumn(col) {
			return nil, &MissingColumnError{Derivation: BlockedTable, Table: "cards", Column: col}
		}
	}

	now := e.Now()
	out := records.NewTable("card_id", "reason", "blocked_at")
	for _, card := range cards.Rows {
		balance, ok := card.Float("balance")
		if !ok || balance >= 0 {
			continue
		}
		out.Append(records.Record{
			"card_id":    card["id"],
			"reason":     BlockedReason,
			"blocked_at": now,
		})
	}
	return out, nil
}

// joinKey canonicalizes a join key value. Integral numbers and their string
// forms produce the same key; blank or untyped values do not join.
func joinKey(v any) (string, bool) {
	switch x := v.(type) {
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	}
	return "", false
}

// recoerceTime normalizes a created_at value for the fraud output:
// already-parsed timestamps pass through, strings get one more parse attempt,
// and anything unparseable becomes nil.
func recoerceTime(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		for _, layout := range TimestampLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
	}
	return nil
}
