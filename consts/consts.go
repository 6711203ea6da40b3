package consts

const (
	AppName = "eems"
	Version = "0.3.0"
)
