package valoremrfq

var (
	QuoteToWire   = quoteToWire
	RequestToWire = requestToWire
)
