package enums

import "strings"

type UserOrder string

const (
	UserOrderCreated    UserOrder = "created"
	UserOrderLastActive UserOrder = "lastActive"
)

func ParseUserOrder(raw string) UserOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(UserOrderCreated)) {
		return UserOrderCreated
	}
	return UserOrderLastActive
}
