package workflow

// Kind identifies the category of workflow and decides which policy variant applies
type Kind string

const (
	KindDocumentApproval Kind = "DOCUMENT_APPROVAL"
	KindLeaveRequest     Kind = "LEAVE_REQUEST"
	KindTask             Kind = "TASK"
)

var validKinds = map[Kind]bool{
	KindDocumentApproval: true,
	KindLeaveRequest:     true,
	KindTask:             true,
}

// IsValid returns true if the kind is a known workflow kind
func (k Kind) IsValid() bool {
	return validKinds[k]
}

// String returns the string representation of the kind
func (k Kind) String() string {
	return string(k)
}

// DocType identifies the routed document subtype within KindDocumentApproval.
// Routing table entries are keyed by (doc type, level).
type DocType string

const (
	DocTypeInvoice       DocType = "Invoice"
	DocTypePurchaseOrder DocType = "PurchaseOrder"
	DocTypeEmployeeInfo  DocType = "EmployeeInfo"
)

var validDocTypes = map[DocType]bool{
	DocTypeInvoice:       true,
	DocTypePurchaseOrder: true,
	DocTypeEmployeeInfo:  true,
}

// IsValid returns true if the doc type is a known routed document subtype
func (d DocType) IsValid() bool {
	return validDocTypes[d]
}

// String returns the string representation of the doc type
func (d DocType) String() string {
	return string(d)
}
