package notify

import "context"

// FakeAlertSender records alerts for test assertions.
type FakeAlertSender struct {
	Alerts []Alert
	Err    error
}

// SendAlert records the alert.
func (f *FakeAlertSender) SendAlert(_ context.Context, a Alert) error {
	if f.Err != nil {
		return f.Err
	}
	f.Alerts = append(f.Alerts, a)
	return nil
}

// FakeGroupSender records group texts.
type FakeGroupSender struct {
	Texts []string
	Err   error
}

// SendText records the message.
func (f *FakeGroupSender) SendText(_ context.Context, text string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Texts = append(f.Texts, text)
	return nil
}

// DirectMsg is one recorded direct message.
type DirectMsg struct {
	To      string
	Subject string
	Body    string
}

// FakeDirectSender records direct messages.
type FakeDirectSender struct {
	Sent []DirectMsg
	Err  error
}

// SendDirect records the message.
func (f *FakeDirectSender) SendDirect(_ context.Context, to, subject, body string) error {
	if f.Err != nil {
		return f.Err
	}
	f.Sent = append(f.Sent, DirectMsg{To: to, Subject: subject, Body: body})
	return nil
}
