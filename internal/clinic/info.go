// Package clinic carries the static contact data of the veterinary service.
// It is the collaborator the bots fall back to when the AI is unavailable.
package clinic

import "fmt"

// Contact describes how to reach the clinic outside the bot.
type Contact struct {
	Phone string
	Hours string
}

// DefaultContact is used when no contact is configured.
var DefaultContact = Contact{
	Phone: "+7-999-123-45-67",
	Hours: "daily 09:00-21:00",
}

// FallbackAdvice is the canned reply sent when the AI consultation cannot be
// produced. A human escalation is still broadcast alongside it, so the text
// promises a doctor rather than an answer.
func FallbackAdvice(c Contact) string {
	return fmt.Sprintf(
		"Sorry, I cannot provide an automated consultation right now.\n\n"+
			"Your question has been forwarded to our on-duty veterinarians and "+
			"one of them will reply here as soon as possible.\n\n"+
			"If the situation is urgent, call the clinic directly:\n"+
			"Phone: %s\nHours: %s",
		c.Phone, c.Hours)
}

// VetCallInstructions explains how to order a home visit.
func VetCallInstructions(c Contact) string {
	return fmt.Sprintf(
		"To order a vet home visit, call us or leave a request on the website.\n\n"+
			"Phone: %s\nHours: %s\n\n"+
			"Please have ready: your address, the pet's type and age, and a short "+
			"description of the problem.",
		c.Phone, c.Hours)
}
