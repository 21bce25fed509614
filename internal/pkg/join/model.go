package join

import "github.com/vreid/rpsls/internal/pkg/wallet"

const (
	MessageInvalidAddress = "Invalid Address!"
	MessageConnect        = "Connect to your wallet to start"
)

type JoinRequest struct {
	Address string `json:"address" form:"address" query:"address"`
}

type Route struct {
	Label  string `json:"label"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

type Home struct {
	Wallet wallet.Status `json:"wallet"`
	Banner string        `json:"banner,omitempty"`
	Routes []Route       `json:"routes"`
}
