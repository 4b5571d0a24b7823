package ctxutil

import "context"

type requestDataKey struct{}

// RequestData identifies who is making the call and what they may do.
// It is attached by the auth middleware and read by services, never by repos.
type RequestData struct {
	UserID       int64
	Roles        []string
	Capabilities map[string]bool
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

func (rd *RequestData) Has(capability string) bool {
	if rd == nil || rd.Capabilities == nil {
		return false
	}
	return rd.Capabilities[capability]
}
