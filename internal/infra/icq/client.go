package icq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production API root
const DefaultBaseURL = "https://u.icq.net/api/v14"

// DefaultDevID is the developer key of the web client
const DefaultDevID = "ic1nmMjqg7Yu-0hL"

const (
	defaultPollTimeoutMS = 30_000
	defaultMemberLimit   = 100

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/77.0.3865.120 Safari/537.36"
	origin    = "https://web.icq.com"
	referer   = "https://web.icq.com/"
)

// Capabilities declared on session start
const (
	assertCaps   = "094613584C7F11D18222444553540000,0946135C4C7F11D18222444553540000,0946135b4c7f11d18222444553540000,0946135E4C7F11D18222444553540000,AABC2A1AF270424598B36993C6231952,1f99494e76cbc880215d6aeab8e42268,a20d2ff3b4b04a0d9d72e1e8b07a2e26"
	interestCaps = "8eec67ce70d041009409a7c1602a5c84,094613504c7f11d18222444553540000,094613514c7f11d18222444553540000,094613564c7f11d18222444553540000"
	subscribed   = "myInfo,presence,buddylist,typing,hiddenChat,hist,mchat,sentIM,imState,dataIM,offlineIM,userAddedToBuddyList,service,lifestream,apps,permitDeny,diff,webrtcMsg"
	presence     = "aimId,displayId,friendly,friendlyName,state,userType,statusMsg,statusTime,lastseen,ssl,mute,abContactName,abPhoneNumber,abPhones,official,quiet,autoAddition,largeIconId,nick,userState"
)

// Client is the ICQ web API client.
// It is safe for concurrent use and never retries.
type Client struct {
	baseURL       string
	devID         string
	pollTimeoutMS int
	httpClient    *http.Client
	logger        *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API root, mostly for tests
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient sets the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request/response tracing
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDevID overrides the developer key
func WithDevID(devID string) Option {
	return func(c *Client) { c.devID = devID }
}

// WithPollTimeout sets the long-poll timeout sent to the service
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeoutMS = int(d / time.Millisecond) }
}

// NewClient creates a new ICQ client
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:       DefaultBaseURL,
		devID:         DefaultDevID,
		pollTimeoutMS: defaultPollTimeoutMS,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		// Leave room for the long poll on top of the server-side timeout
		c.httpClient = &http.Client{Timeout: time.Duration(c.pollTimeoutMS)*time.Millisecond + 30*time.Second}
	}
	return c
}

// SendCode asks the service to send a verification code by SMS
func (c *Client) SendCode(ctx context.Context, phone string) (*SendCodeResult, error) {
	body := rapiRequest[sendCodeParams]{
		ReqID: NewRequestID(),
		Params: sendCodeParams{
			Phone:       phone,
			Language:    "en-US",
			Route:       "sms",
			DevID:       c.devID,
			Application: "icq",
		},
	}
	env, err := postJSON[rapiResponse[SendCodeResult]](ctx, c, "sendCode", c.baseURL+"/rapi/auth/sendCode", body)
	if err != nil {
		return nil, err
	}
	return &env.Results, nil
}

// LoginWithPhoneNumber exchanges the SMS code for registration credentials
func (c *Client) LoginWithPhoneNumber(ctx context.Context, phone, transID, code string) (*LoginResult, error) {
	form := url.Values{
		"msisdn":         {phone},
		"trans_id":       {transID},
		"sms_code":       {code},
		"locale":         {"en"},
		"k":              {c.devID},
		"platform":       {"web"},
		"create_account": {"1"},
		"client":         {"icq"},
		"r":              {NewRequestID()},
	}
	env, err := postForm[webResponse[LoginResult]](ctx, c, "loginWithPhoneNumber", c.baseURL+"/smsreg/loginWithPhoneNumber.php", form)
	if err != nil {
		return nil, err
	}
	return unwrapWeb("loginWithPhoneNumber", env)
}

// StartSession exchanges the long-lived token for a session
func (c *Client) StartSession(ctx context.Context, token string, hostTime uint32, deviceID string) (*StartSessionResult, error) {
	query := url.Values{
		"a":                     {token},
		"ts":                    {strconv.FormatUint(uint64(hostTime), 10)},
		"k":                     {c.devID},
		"view":                  {"online"},
		"clientName":            {"webicq"},
		"language":              {"en-US"},
		"deviceId":              {deviceID},
		"sessionTimeout":        {"2592000"},
		"assertCaps":            {assertCaps},
		"interestCaps":          {interestCaps},
		"events":                {subscribed},
		"includePresenceFields": {presence},
	}
	target := c.baseURL + "/wim/aim/startSession?" + query.Encode()
	env, err := postForm[webResponse[StartSessionResult]](ctx, c, "startSession", target, url.Values{})
	if err != nil {
		return nil, err
	}
	return unwrapWeb("startSession", env)
}

// FetchEvents long-polls the cursor for the next batch of events
func (c *Client) FetchEvents(ctx context.Context, fetchBaseURL string) (*FetchEventsResult, error) {
	u, err := url.Parse(fetchBaseURL)
	if err != nil {
		return nil, newError("fetchEvents", KindSerialization, fmt.Errorf("invalid cursor: %w", err))
	}
	q := u.Query()
	q.Set("timeout", strconv.Itoa(c.pollTimeoutMS))
	u.RawQuery = q.Encode()

	env, err := getJSON[webResponse[FetchEventsResult]](ctx, c, "fetchEvents", u.String())
	if err != nil {
		return nil, err
	}
	return unwrapWeb("fetchEvents", env)
}

// GetChatInfo gets a chat descriptor by stable name
func (c *Client) GetChatInfo(ctx context.Context, aimsid, sn string) (*ChatInfoResult, error) {
	return rapi[ChatInfoResult](ctx, c, "getChatInfo", aimsid, chatInfoParams{SN: sn, MemberLimit: defaultMemberLimit})
}

// GetChatInfoByStamp gets a chat descriptor by shareable stamp
func (c *Client) GetChatInfoByStamp(ctx context.Context, aimsid, stamp string) (*ChatInfoResult, error) {
	return rapi[ChatInfoResult](ctx, c, "getChatInfo", aimsid, chatInfoParams{Stamp: stamp, MemberLimit: defaultMemberLimit})
}

// JoinChat joins a chat by shareable stamp
func (c *Client) JoinChat(ctx context.Context, aimsid, stamp string) (*Empty, error) {
	return rapi[Empty](ctx, c, "joinChat", aimsid, stampParams{Stamp: stamp})
}

// GetHistory gets count messages of a dialog starting at fromMsgID.
// A negative count walks backward.
func (c *Client) GetHistory(ctx context.Context, aimsid, sn, fromMsgID string, count int) (*HistoryResult, error) {
	return rapi[HistoryResult](ctx, c, "getHistory", aimsid, historyParams{
		SN:           sn,
		FromMsgID:    fromMsgID,
		Count:        count,
		PatchVersion: "init",
	})
}

// SendIM sends a text message
func (c *Client) SendIM(ctx context.Context, aimsid, to, text string) (*SendIMResult, error) {
	form := url.Values{
		"t":        {to},
		"r":        {NewRequestID()},
		"mentions": {""},
		"message":  {text},
		"f":        {"json"},
		"aimsid":   {aimsid},
	}
	env, err := postForm[webResponse[SendIMResult]](ctx, c, "sendIM", c.baseURL+"/wim/im/sendIM", form)
	if err != nil {
		return nil, err
	}
	return unwrapWeb("sendIM", env)
}

// FilesInfo gets the metadata of a shared file
func (c *Client) FilesInfo(ctx context.Context, aimsid, fileID string) (*FileInfoResult, error) {
	query := url.Values{"aimsid": {aimsid}, "previews": {"192"}}
	target := c.baseURL + "/files/info/" + url.PathEscape(fileID) + "?" + query.Encode()
	env, err := getJSON[resultResponse[FileInfoResult]](ctx, c, "filesInfo", target)
	if err != nil {
		return nil, err
	}
	return &env.Result, nil
}

func rapi[T any, P any](ctx context.Context, c *Client, op, aimsid string, params P) (*T, error) {
	body := rapiRequest[P]{AimSID: aimsid, ReqID: NewRequestID(), Params: params}
	env, err := postJSON[rapiResponse[T]](ctx, c, op, c.baseURL+"/rapi/"+op, body)
	if err != nil {
		return nil, err
	}
	return &env.Results, nil
}

func unwrapWeb[T any](op string, env *webResponse[T]) (*T, error) {
	if code := env.Response.StatusCode; code != 0 && code != http.StatusOK {
		return nil, &Error{
			Op:     op,
			Kind:   KindTransport,
			Status: code,
			Err:    fmt.Errorf("service replied %q", env.Response.StatusText),
		}
	}
	return &env.Response.Data, nil
}

func getJSON[T any](ctx context.Context, c *Client, op, target string) (*T, error) {
	data, err := c.do(ctx, op, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, err
	}
	return decode[T](op, data)
}

func postJSON[T any](ctx context.Context, c *Client, op, target string, body any) (*T, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, newError(op, KindSerialization, err)
	}
	data, err := c.do(ctx, op, http.MethodPost, target, payload, "application/json")
	if err != nil {
		return nil, err
	}
	return decode[T](op, data)
}

func postForm[T any](ctx context.Context, c *Client, op, target string, form url.Values) (*T, error) {
	data, err := c.do(ctx, op, http.MethodPost, target, []byte(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	return decode[T](op, data)
}

func decode[T any](op string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, newError(op, KindDeserialization, err)
	}
	return &v, nil
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, newError(op, KindSerialization, err)
	}
	setDefaultHeaders(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("request", "op", op, "method", method, "url", target, "body", string(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(op, KindTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(op, KindTransport, fmt.Errorf("failed to read body: %w", err))
	}
	c.logger.Debug("response", "op", op, "status", resp.StatusCode, "body", string(data))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &Error{Op: op, Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("http %s", resp.Status)}
	}
	return data, nil
}

func setDefaultHeaders(req *http.Request) {
	req.Header.Set("DNT", "1")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", referer)
}
