package client

import (
	"fmt"
	"net/url"
	"time"
)

// BookingClient calls the bookings HTTP API as a single authenticated caller.
type BookingClient struct {
	httpClient *HttpClient
	token      string
}

func NewBookingClient(baseUrl, token string) *BookingClient {
	return &BookingClient{
		httpClient: NewHttpClient(baseUrl),
		token:      token,
	}
}

// AsCaller returns a client that shares the transport but presents another token.
func (c *BookingClient) AsCaller(token string) *BookingClient {
	return &BookingClient{httpClient: c.httpClient, token: token}
}

func (c *BookingClient) headers() map[string]string {
	if c.token == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.token}
}

func (c *BookingClient) Admit(body any) (*Response, error) {
	return c.httpClient.POSTWithHeaders("/api/v1/bookings", body, c.headers())
}

func (c *BookingClient) Mine(limit int, offset int64) (*Response, error) {
	path := fmt.Sprintf("/api/v1/bookings/me?limit=%d&offset=%d", limit, offset)
	return c.httpClient.GETWithHeaders(path, c.headers())
}

func (c *BookingClient) All(seatID string, limit int, offset int64) (*Response, error) {
	q := url.Values{}
	if seatID != "" {
		q.Set("seat_id", seatID)
	}
	q.Set("limit", fmt.Sprintf("%d", limit))
	q.Set("offset", fmt.Sprintf("%d", offset))
	return c.httpClient.GETWithHeaders("/api/v1/bookings?"+q.Encode(), c.headers())
}

func (c *BookingClient) GetByID(id string) (*Response, error) {
	return c.httpClient.GETWithHeaders("/api/v1/bookings/id/"+url.PathEscape(id), c.headers())
}

func (c *BookingClient) SeatOccupancy(seatID string, from, to time.Time) (*Response, error) {
	q := url.Values{}
	q.Set("start_time", from.UTC().Format(time.RFC3339))
	q.Set("end_time", to.UTC().Format(time.RFC3339))
	path := "/api/v1/seats/" + url.PathEscape(seatID) + "/bookings?" + q.Encode()
	return c.httpClient.GETWithHeaders(path, c.headers())
}
