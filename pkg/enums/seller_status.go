package enums

// SellerStatus maps to the seller_status check constraint.
type SellerStatus string

const (
	SellerStatusInactive SellerStatus = "inactive"
	SellerStatusActive   SellerStatus = "active"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusInactive,
	SellerStatusActive,
}

func (s SellerStatus) String() string { return string(s) }

func (s SellerStatus) IsValid() bool { return oneOf(s, validSellerStatuses) }

func ParseSellerStatus(value string) (SellerStatus, error) {
	return parse("seller status", value, validSellerStatuses)
}
