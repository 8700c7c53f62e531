package person

import "strings"

// Group result fields.
const (
	GroupFieldCountry = "country"
	GroupFieldTotal   = "total"
)

// GroupSort resolves the caller's sort parameters for the country grouping.
// The key is "total" when field equals it ignoring case and "country"
// otherwise; the order is descending when order contains "desc" ignoring case.
func GroupSort(field, order string) (key string, desc bool) {
	key = GroupFieldCountry
	if strings.EqualFold(field, GroupFieldTotal) {
		key = GroupFieldTotal
	}
	desc = strings.Contains(strings.ToLower(order), "desc")
	return key, desc
}
