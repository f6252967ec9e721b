package action

// State is where an operation is in its lifecycle.
//
//	Validating -> Rejected
//	Validating -> Applied -> Confirmed
//	Validating -> Applied -> Reverting -> Reverted
//	Validating -> Issued  -> Confirmed | Failed
//
// Issued is used instead of Applied when optimistic updates are off.
type State int

const (
	Validating State = iota
	Rejected
	Applied
	Issued
	Confirmed
	Reverting
	Reverted
	Failed
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Rejected:
		return "rejected"
	case Applied:
		return "applied"
	case Issued:
		return "issued"
	case Confirmed:
		return "confirmed"
	case Reverting:
		return "reverting"
	case Reverted:
		return "reverted"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Done reports whether s is a final state.
func (s State) Done() bool {
	switch s {
	case Rejected, Confirmed, Reverted, Failed:
		return true
	}
	return false
}

// Kind names a business operation.
type Kind string

const (
	KindAssignLocation Kind = "assign-location"
	KindRemoveLocation Kind = "remove-location"
	KindAssignTax      Kind = "assign-tax"
	KindCommissionSale Kind = "sell"
	KindBulkSale       Kind = "sell-bulk"
	KindDelete         Kind = "delete"
	KindUpdate         Kind = "update"
	KindAdd            Kind = "add"
	KindRefresh        Kind = "refresh"
)

// Invoice line fields the operations read or write.
const (
	FieldInvoiceNumber     = "invoice_number"
	FieldItemName          = "item_name"
	FieldColor             = "color"
	FieldInvoiceDate       = "invoice_date"
	FieldDeliveredLocation = "delivered_location"
	FieldTaxInvoiceNumber  = "tax_invoice_number"
	FieldPendingYards      = "pending_yards"
)
