package notionsync

import (
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/fintrack-ai/internal/domain"
	"github.com/dvloznov/fintrack-ai/internal/store"
)

// Property names of the transactions database.
const (
	PropDescription       = "Description"
	PropTransactionID     = "Transaction ID"
	PropDate              = "Date"
	PropAmount            = "Amount"
	PropType              = "Type"
	PropCategory          = "Category"
	PropMerchant          = "Merchant"
	PropAccount           = "Account"
	PropIsTransfer        = "Is Transfer"
	PropPotentialTransfer = "Potential Transfer"
	PropDocumentID        = "Document ID"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// TransactionToNotionProperties converts a stored transaction to page
// properties. ref resolves dates written without a year; unreadable dates are
// left out.
func TransactionToNotionProperties(rec store.TransactionRecord, ref time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropDescription:       notionapi.TitleProperty{Title: richText(rec.Description)},
		PropTransactionID:     notionapi.RichTextProperty{RichText: richText(rec.ID)},
		PropAmount:            notionapi.NumberProperty{Number: rec.Amount},
		PropIsTransfer:        notionapi.CheckboxProperty{Checkbox: rec.IsTransfer},
		PropPotentialTransfer: notionapi.CheckboxProperty{Checkbox: rec.PotentialTransfer},
	}

	if d, ok := domain.ParseDate(rec.Date, ref); ok {
		nd := notionapi.Date(d)
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &nd}}
	}

	// Select options cannot be empty.
	if rec.Type != "" {
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: rec.Type}}
	}
	if rec.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: rec.Category}}
	}
	if rec.AccountName != "" {
		props[PropAccount] = notionapi.SelectProperty{Select: notionapi.Option{Name: rec.AccountName}}
	}

	if rec.Merchant != "" {
		props[PropMerchant] = notionapi.RichTextProperty{RichText: richText(rec.Merchant)}
	}
	if rec.DocumentID != "" {
		props[PropDocumentID] = notionapi.RichTextProperty{RichText: richText(rec.DocumentID)}
	}

	return props
}

// extractTransactionID returns the Transaction ID of a page read back from
// Notion, or "" when the page has none.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		return plainText(p.RichText)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	}
	return ""
}

func plainText(rt []notionapi.RichText) string {
	if len(rt) == 0 {
		return ""
	}
	if rt[0].PlainText != "" {
		return rt[0].PlainText
	}
	if rt[0].Text != nil {
		return rt[0].Text.Content
	}
	return ""
}
