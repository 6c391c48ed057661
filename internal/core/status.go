package core

// DisplayStatus is the read-time classification of a bill.
type DisplayStatus string

const (
	DisplayUpcoming DisplayStatus = "pending-upcoming"
	DisplayOverdue  DisplayStatus = "pending-overdue"
	DisplayPaid     DisplayStatus = "paid"
)

// Classify derives how a bill is shown relative to today. A stored paid
// status always wins; any other bill due strictly before today is overdue.
func Classify(status BillStatus, due, today Date) DisplayStatus {
	if status == StatusPaid {
		return DisplayPaid
	}
	if due.Before(today) || status == StatusOverdue {
		return DisplayOverdue
	}
	return DisplayUpcoming
}

// Display classifies b relative to today.
func (b Bill) Display(today Date) DisplayStatus {
	return Classify(b.Status, b.DueDate, today)
}
