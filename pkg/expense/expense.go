package expense

import (
	"time"

	"github.com/sitetrack/sitetrack/pkg/money"
)

type Category string

const (
	CategoryMaterial       Category = "material"
	CategoryLabor          Category = "labor"
	CategoryEquipment      Category = "equipment"
	CategoryTransportation Category = "transportation"
	CategoryUtility        Category = "utility"
	CategoryPermit         Category = "permit"
	CategoryOther          Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryMaterial,
	CategoryLabor,
	CategoryEquipment,
	CategoryTransportation,
	CategoryUtility,
	CategoryPermit,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCredit   PaymentMethod = "credit"
	PaymentDebit    PaymentMethod = "debit"
	PaymentCheck    PaymentMethod = "check"
	PaymentTransfer PaymentMethod = "transfer"
)

var PaymentMethods = []PaymentMethod{
	PaymentCash,
	PaymentCredit,
	PaymentDebit,
	PaymentCheck,
	PaymentTransfer,
}

const DefaultPaymentMethod = PaymentCash

func (p PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if p == known {
			return true
		}
	}
	return false
}

type Expense struct {
	Id     string
	Title  string
	Amount money.Money
	// Category is always one of Categories once the expense passed validation.
	Category      Category
	Date          time.Time
	PaymentMethod PaymentMethod
	// ProjectId is empty when the expense is not allocated to a project.
	ProjectId   string
	Receipt     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e Expense) HasProject() bool {
	return e.ProjectId != ""
}

// Filter narrows a listing. Zero values mean "no constraint"; From and To are inclusive dates.
type Filter struct {
	ProjectId string
	Category  Category
	From      *time.Time
	To        *time.Time
}
