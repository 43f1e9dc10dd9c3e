package client

import "context"

// Session binds a Client to one user. Chat front-ends create one per signed-in
// user and pass it to the code that reacts to messages and calls.
type Session struct {
	client *Client
	userID string
}

func (c *Client) Session(userID string) *Session {
	return &Session{client: c, userID: userID}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) MessageSent(ctx context.Context) (*Stats, error) {
	return s.client.RecordEvent(ctx, s.userID, EventMessageSent)
}

func (s *Session) CallPlaced(ctx context.Context) (*Stats, error) {
	return s.client.RecordEvent(ctx, s.userID, EventCallPlaced)
}

func (s *Session) CallAnswered(ctx context.Context) (*Stats, error) {
	return s.client.RecordEvent(ctx, s.userID, EventCallAnswered)
}

func (s *Session) Stats(ctx context.Context) (*Stats, error) {
	return s.client.GetStats(ctx, s.userID)
}

func (s *Session) Profile(ctx context.Context) (*Profile, error) {
	return s.client.GetProfile(ctx, s.userID)
}

func (s *Session) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Profile, error) {
	return s.client.UpdateProfile(ctx, s.userID, update)
}
