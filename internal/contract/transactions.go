package contract

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/dvloznov/fintrack-ai/internal/domain"
)

const taskTransactions = "transactions"

var transferKeywords = regexp.MustCompile(`(?i)\b(transfer\w*|xfer|acct|savings?|ira|investments?|eft|contributions?)\b`)

// HasTransferKeyword reports whether a description contains one of the words
// that mark a potential transfer between the user's own accounts.
func HasTransferKeyword(description string) bool {
	return transferKeywords.MatchString(description)
}

// ParseTransactions validates an extraction response. The response must be a
// JSON list (possibly empty) whose every element is a complete transaction;
// a single bad element rejects the whole response. Accepted transactions are
// returned normalized.
func ParseTransactions(raw string) ([]domain.Transaction, error) {
	clean := CleanModelJSON(raw, '[')
	if clean == "" {
		return nil, &ValidationError{Task: taskTransactions, Index: -1, Reason: "expected a JSON list", Err: ErrNoJSON}
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, &ValidationError{Task: taskTransactions, Index: -1, Reason: "invalid JSON: " + err.Error(), Err: ErrNoJSON}
	}

	items, ok := parsed.([]interface{})
	if !ok {
		return nil, schemaErr(taskTransactions, -1, "", "top-level value is "+jsonType(parsed)+", want array")
	}

	result := make([]domain.Transaction, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, schemaErr(taskTransactions, i, "", "element is "+jsonType(item)+", want object")
		}
		tx, err := transactionFromMap(i, obj)
		if err != nil {
			return nil, err
		}
		result = append(result, NormalizeTransaction(tx))
	}
	return result, nil
}

func transactionFromMap(i int, obj map[string]interface{}) (domain.Transaction, error) {
	var tx domain.Transaction
	var err error

	strField := func(key string, nonEmpty bool, dst *string) bool {
		if err != nil {
			return false
		}
		var s string
		s, err = getString(obj, key, nonEmpty)
		if err != nil {
			err = schemaErr(taskTransactions, i, key, err.Error())
			return false
		}
		*dst = s
		return true
	}
	boolField := func(key string, dst *bool) {
		if err != nil {
			return
		}
		var b bool
		b, err = getBool(obj, key)
		if err != nil {
			err = schemaErr(taskTransactions, i, key, err.Error())
			return
		}
		*dst = b
	}

	strField("date", true, &tx.Date)
	strField("description", true, &tx.Description)
	if err == nil {
		var amount float64
		amount, err = getNumber(obj, "amount")
		if err != nil {
			err = schemaErr(taskTransactions, i, "amount", err.Error())
		}
		tx.Amount = amount
	}
	if strField("type", true, &tx.Type) {
		tx.Type = strings.ToLower(tx.Type)
		if tx.Type != domain.TypeIncome && tx.Type != domain.TypeExpense {
			err = schemaErr(taskTransactions, i, "type", `must be "income" or "expense", got "`+tx.Type+`"`)
		}
	}
	strField("category", false, &tx.Category)
	strField("merchant", false, &tx.Merchant)
	strField("account_name", true, &tx.AccountName)
	boolField("is_transfer", &tx.IsTransfer)
	boolField("potential_transfer", &tx.PotentialTransfer)

	if err != nil {
		return domain.Transaction{}, err
	}
	return tx, nil
}

// NormalizeTransaction aligns the amount sign with the transaction type and
// raises PotentialTransfer when the description carries a transfer keyword.
// IsTransfer is left as the model reported it. It is idempotent.
func NormalizeTransaction(tx domain.Transaction) domain.Transaction {
	switch tx.Type {
	case domain.TypeExpense:
		tx.Amount = -math.Abs(tx.Amount)
	case domain.TypeIncome:
		tx.Amount = math.Abs(tx.Amount)
	}
	if HasTransferKeyword(tx.Description) {
		tx.PotentialTransfer = true
	}
	return tx
}
