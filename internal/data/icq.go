package data

import (
	"context"
	"time"

	"github.com/tidwall/gjson"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/infra/icq"
)

// icqRepo implements the ICQ repository
type icqRepo struct {
	client *icq.Client
}

// NewICQRepo creates a new ICQ repository
func NewICQRepo(client *icq.Client) repo.ICQRepo {
	return &icqRepo{client: client}
}

// SendCode sends the verification code
func (r *icqRepo) SendCode(ctx context.Context, phone string) (string, error) {
	res, err := r.client.SendCode(ctx, phone)
	if err != nil {
		return "", err
	}
	return res.SessionID, nil
}

// LoginWithPhone exchanges the verification code for credentials
func (r *icqRepo) LoginWithPhone(ctx context.Context, phone, transID, code string) (domain.Credentials, error) {
	res, err := r.client.LoginWithPhoneNumber(ctx, phone, transID, code)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{
		Token:      res.Token.A,
		SessionKey: res.SessionKey,
		SessionID:  transID,
		HostTime:   res.HostTime,
	}, nil
}

// StartSession starts a session
func (r *icqRepo) StartSession(ctx context.Context, creds domain.Credentials, deviceID string) (*domain.Session, error) {
	res, err := r.client.StartSession(ctx, creds.Token, creds.HostTime, deviceID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		Credentials:  creds,
		AimSID:       res.AimSID,
		AimID:        res.MyInfo.AimID,
		FetchBaseURL: res.FetchBaseURL,
	}, nil
}

// FetchEvents long-polls the cursor
func (r *icqRepo) FetchEvents(ctx context.Context, cursor string) (*domain.EventBatch, error) {
	res, err := r.client.FetchEvents(ctx, cursor)
	if err != nil {
		return nil, err
	}

	batch := &domain.EventBatch{
		NextCursor: res.FetchBaseURL,
		Events:     make([]domain.Event, 0, len(res.Events)),
	}
	for _, ev := range res.Events {
		batch.Events = append(batch.Events, convertEvent(ev))
	}
	return batch, nil
}

// GetChatInfo gets chat info by stable name
func (r *icqRepo) GetChatInfo(ctx context.Context, session domain.Session, stableName string) (*domain.ChatInfo, error) {
	res, err := r.client.GetChatInfo(ctx, session.AimSID, stableName)
	if err != nil {
		return nil, err
	}
	return convertChatInfo(res), nil
}

// GetChatInfoByStamp gets chat info by shareable stamp
func (r *icqRepo) GetChatInfoByStamp(ctx context.Context, session domain.Session, stamp string) (*domain.ChatInfo, error) {
	res, err := r.client.GetChatInfoByStamp(ctx, session.AimSID, stamp)
	if err != nil {
		return nil, err
	}
	return convertChatInfo(res), nil
}

// JoinChat joins a chat
func (r *icqRepo) JoinChat(ctx context.Context, session domain.Session, stamp string) error {
	_, err := r.client.JoinChat(ctx, session.AimSID, stamp)
	return err
}

// SendMessage sends a text message
func (r *icqRepo) SendMessage(ctx context.Context, session domain.Session, to, text string) (*domain.SentMessage, error) {
	res, err := r.client.SendIM(ctx, session.AimSID, to, text)
	if err != nil {
		return nil, err
	}
	return &domain.SentMessage{
		MsgID:     res.MsgID.String(),
		HistMsgID: res.HistMsgID,
		Time:      unixTime(res.TS),
		State:     res.State,
	}, nil
}

// FileInfo gets file metadata
func (r *icqRepo) FileInfo(ctx context.Context, session domain.Session, fileID string) (*domain.FileInfo, error) {
	res, err := r.client.FilesInfo(ctx, session.AimSID, fileID)
	if err != nil {
		return nil, err
	}
	return &domain.FileInfo{
		ID:      fileID,
		Name:    res.Info.FileName,
		Size:    res.Info.FileSize,
		MIME:    res.Info.MIME,
		Link:    res.Info.DLink,
		MD5:     res.Info.MD5,
		Preview: res.Previews["192"],
	}, nil
}

// GetHistory gets a history page
func (r *icqRepo) GetHistory(ctx context.Context, session domain.Session, stableName, fromMsgID string, count int) (*domain.HistoryPage, error) {
	res, err := r.client.GetHistory(ctx, session.AimSID, stableName, fromMsgID, count)
	if err != nil {
		return nil, err
	}
	return &domain.HistoryPage{
		StableName: stableName,
		Persons:    convertPersons(res.Persons),
		Messages:   convertMessages(res.Messages),
	}, nil
}

// convertEvent converts a wire event to a domain event
func convertEvent(ev icq.Try[icq.Event]) domain.Event {
	if !ev.OK {
		reason := ""
		if ev.Problem != nil {
			reason = ev.Problem.Error()
		}
		return &domain.UnknownEvent{
			Tag:    gjson.GetBytes(ev.Raw, "type").String(),
			Raw:    ev.Raw,
			Reason: reason,
		}
	}

	seq := ev.Value.SeqNum
	switch p := ev.Value.Payload.(type) {
	case *icq.HistDlgState:
		out := &domain.ChatStateEvent{
			SeqNum:      seq,
			StableName:  p.SN,
			Starting:    p.Starting,
			LastMsgID:   p.LastMsgID.String(),
			UnreadCount: p.UnreadCnt,
			Persons:     convertPersons(p.Persons),
			Messages:    convertMessages(p.Messages),
		}
		if p.MChatState != nil {
			out.Version = &domain.ChatVersion{
				MembersVersion: p.MChatState.MembersVersion.String(),
				InfoVersion:    p.MChatState.InfoVersion.String(),
			}
		}
		return out

	case *icq.BuddyList:
		out := &domain.BuddyListEvent{SeqNum: seq}
		for _, g := range p.Groups {
			group := domain.BuddyGroup{ID: g.ID, Name: g.Name}
			for _, b := range g.Buddies {
				group.Buddies = append(group.Buddies, domain.Buddy{
					ID:       b.AimID,
					Friendly: b.Friendly,
					Type:     b.UserType,
				})
			}
			out.Groups = append(out.Groups, group)
		}
		return out

	case *icq.MyInfo:
		return &domain.MyInfoEvent{
			SeqNum:    seq,
			AimID:     p.AimID,
			DisplayID: p.DisplayID,
			Friendly:  p.Friendly,
			State:     p.State,
			UserType:  p.UserType,
		}

	case *icq.Presence:
		return &domain.PresenceEvent{
			SeqNum:    seq,
			AimID:     p.AimID,
			Friendly:  p.Friendly,
			State:     p.State,
			UserType:  p.UserType,
			StatusMsg: p.StatusMsg,
			LastSeen:  unixTime(p.LastSeen),
		}

	case *icq.PermitDeny:
		return &domain.PermitDenyEvent{
			SeqNum:  seq,
			Allows:  p.Allows,
			Blocks:  p.Blocks,
			Ignores: p.Ignores,
		}

	case *icq.GalleryNotify:
		return &domain.GalleryNotifyEvent{SeqNum: seq, Raw: p.Raw}
	}

	return &domain.UnknownEvent{Tag: ev.Value.Type, Raw: ev.Raw, Reason: "unhandled payload"}
}

func convertPersons(persons []icq.Person) []domain.Person {
	out := make([]domain.Person, 0, len(persons))
	for _, p := range persons {
		out = append(out, domain.Person{
			StableName: p.SN,
			Friendly:   p.Friendly,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
		})
	}
	return out
}

func convertMessages(msgs []icq.HistMessage) []domain.IncomingMessage {
	out := make([]domain.IncomingMessage, 0, len(msgs))
	for _, m := range msgs {
		msg := domain.IncomingMessage{
			MsgID:    m.MsgID.String(),
			Time:     unixTime(m.Time),
			Text:     m.Text,
			Outgoing: m.Outgoing,
		}
		if m.Chat != nil {
			msg.Sender = m.Chat.Sender
		}
		out = append(out, msg)
	}
	return out
}

func convertChatInfo(res *icq.ChatInfoResult) *domain.ChatInfo {
	info := &domain.ChatInfo{
		Stamp:          res.Stamp,
		StableName:     res.SN,
		Title:          res.Name,
		About:          res.About,
		MembersVersion: res.MembersVersion.String(),
		InfoVersion:    res.InfoVersion.String(),
		Members:        make([]domain.ChatMember, 0, len(res.Members)),
	}
	for _, m := range res.Members {
		info.Members = append(info.Members, domain.ChatMember{
			StableName:   m.SN,
			FriendlyName: m.Friendly,
			Role:         domain.MemberRole(m.Role),
			LastSeen:     unixTime(m.UserState.LastSeen),
			FirstName:    m.Anketa.FirstName,
			LastName:     m.Anketa.LastName,
		})
	}
	return info
}

// unixTime converts unix seconds, zero meaning unknown
func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
