package offline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	replyGreeting = "Hello! I'm Zara. I can't reach the AI service right now, but I can still do quick maths, tell you the time or the date. Your messages are saved either way."
	replyThanks   = "You're welcome!"
	replyHelp     = "While offline I can answer simple arithmetic like \"12 * 7\", tell you the time or today's date. Everything else will have to wait until the connection is back."
	replyFallback = "I'm offline at the moment, so I can't answer that properly. Your conversation is saved; ask again once you're back online."
)

var (
	arithmeticRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([+\-*/x×÷])\s*(-?\d+(?:\.\d+)?)`)
	greetingRe   = regexp.MustCompile(`^(hi|hello|hey|hiya|good (morning|afternoon|evening))\b`)
	thanksRe     = regexp.MustCompile(`\b(thanks|thank you|thx|cheers)\b`)
	helpRe       = regexp.MustCompile(`\b(help|what can you do)\b`)
	timeRe       = regexp.MustCompile(`\bwhat(?:'s| is) the time\b|\bwhat time is it\b`)
	dateRe       = regexp.MustCompile(`\bwhat(?:'s| is) (?:the date|today(?:'s date)?)\b|\bwhat day is it\b`)
)

// Responder produces rule-based replies without network access
type Responder struct {
	now func() time.Time
}

// NewResponder creates a responder using the wall clock
func NewResponder() *Responder {
	return &Responder{now: time.Now}
}

// NewResponderWithClock creates a responder with a fixed time source
func NewResponderWithClock(now func() time.Time) *Responder {
	return &Responder{now: now}
}

// Respond returns a reply for text. It never fails.
func (r *Responder) Respond(text string) string {
	q := strings.ToLower(strings.TrimSpace(text))

	if m := arithmeticRe.FindStringSubmatch(q); m != nil {
		if reply, ok := arithmetic(m[1], m[2], m[3]); ok {
			return reply
		}
	}

	switch {
	case timeRe.MatchString(q):
		return "It's " + r.now().Format("15:04") + "."
	case dateRe.MatchString(q):
		return "Today is " + r.now().Format("Monday, 2 January 2006") + "."
	case greetingRe.MatchString(q):
		return replyGreeting
	case thanksRe.MatchString(q):
		return replyThanks
	case helpRe.MatchString(q):
		return replyHelp
	default:
		return replyFallback
	}
}

func arithmetic(lhs, op, rhs string) (string, bool) {
	a, err := strconv.ParseFloat(lhs, 64)
	if err != nil {
		return "", false
	}
	b, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return "", false
	}

	var result float64
	symbol := op
	switch op {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*", "x", "×":
		symbol = "×"
		result = a * b
	case "/", "÷":
		symbol = "÷"
		if b == 0 {
			return "I can't divide by zero, even offline.", true
		}
		result = a / b
	default:
		return "", false
	}

	return fmt.Sprintf("%s %s %s = %s", formatNumber(a), symbol, formatNumber(b), formatNumber(result)), true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
