package shop

const (
	TopicOrderConfirmed = "order.confirmed"
)

// Partition key = order number, so events for one order keep their order.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
