package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/flared/icq-bridge/internal/biz/domain"
	"github.com/flared/icq-bridge/internal/biz/repo"
	"github.com/flared/icq-bridge/internal/host"
)

// fileURLPattern matches links to the files service, the group is the file id
var fileURLPattern = regexp.MustCompile(`https://files\.icq\.net/get/([A-Za-z0-9_-]+)`)

// maxFileLookups bounds concurrent file-info requests per message
const maxFileLookups = 4

// ChatInfoFetcher requests a full chat descriptor in the background.
// It must not block.
type ChatInfoFetcher func(ctx context.Context, stableName string)

// ReconcilerUsecase applies incoming events to the host state
type ReconcilerUsecase struct {
	icqRepo   repo.ICQRepo
	slot      *domain.SessionSlot
	presenter host.Presenter
	table     *ConversationTable
	logger    *slog.Logger

	mu            sync.RWMutex
	fetchChatInfo ChatInfoFetcher
}

// NewReconcilerUsecase creates a new reconciler usecase
func NewReconcilerUsecase(
	icqRepo repo.ICQRepo,
	slot *domain.SessionSlot,
	presenter host.Presenter,
	table *ConversationTable,
	logger *slog.Logger,
) *ReconcilerUsecase {
	return &ReconcilerUsecase{
		icqRepo:   icqRepo,
		slot:      slot,
		presenter: presenter,
		table:     table,
		logger:    logger,
	}
}

// SetChatInfoFetcher binds the background chat info fetch
func (uc *ReconcilerUsecase) SetChatInfoFetcher(f ChatInfoFetcher) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.fetchChatInfo = f
}

func (uc *ReconcilerUsecase) chatInfoFetcher() ChatInfoFetcher {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.fetchChatInfo
}

// HandleBatch handles the events of one poll in order.
// A failing event is logged and does not stop the batch.
func (uc *ReconcilerUsecase) HandleBatch(ctx context.Context, events []domain.Event) {
	for _, ev := range events {
		if err := uc.Handle(ctx, ev); err != nil {
			uc.logger.Error("failed to handle event", "type", ev.Type(), "error", err)
		}
	}
}

// Handle handles one event
func (uc *ReconcilerUsecase) Handle(ctx context.Context, ev domain.Event) error {
	switch e := ev.(type) {
	case *domain.ChatStateEvent:
		return uc.HandleChatState(ctx, e)
	case *domain.BuddyListEvent:
		uc.HandleBuddyList(ctx, e)
		return nil
	case *domain.MyInfoEvent:
		if e.Friendly != "" {
			uc.table.SetOwnDisplayName(e.Friendly)
		}
		uc.logger.Debug("my info", "aim_id", e.AimID, "friendly", e.Friendly, "state", e.State)
		return nil
	case *domain.PresenceEvent:
		uc.logger.Debug("presence", "aim_id", e.AimID, "state", e.State, "last_seen", e.LastSeen)
		return nil
	case *domain.PermitDenyEvent:
		uc.logger.Debug("permit deny", "allows", len(e.Allows), "blocks", len(e.Blocks), "ignores", len(e.Ignores))
		return nil
	case *domain.GalleryNotifyEvent:
		uc.logger.Debug("gallery notify", "size", len(e.Raw))
		return nil
	case *domain.UnknownEvent:
		uc.logger.Warn("skipping unknown event", "tag", e.Tag, "reason", e.Reason, "raw", string(e.Raw))
		return nil
	}
	return fmt.Errorf("unhandled event type %T", ev)
}

// HandleChatState applies a chat-state event: chat entry, conversation, messages, descriptor freshness
func (uc *ReconcilerUsecase) HandleChatState(ctx context.Context, ev *domain.ChatStateEvent) error {
	if ev.StableName == "" {
		return fmt.Errorf("chat state without stable name")
	}
	session, err := uc.slot.Session()
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}

	chat := uc.partialChat(ev)
	if err := uc.presenter.ChatJoined(ctx, chat); err != nil {
		uc.logger.Warn("failed to update chat entry", "chat", chat.StableName, "error", err)
	}
	uc.table.Open(ev.StableName)

	// Only a message newer than anything seen (re)opens the conversation window
	newer := false
	for _, msg := range ev.Messages {
		if msg.Text != "" && uc.table.ObserveMessageTime(ev.StableName, msg.Time) {
			newer = true
		}
	}
	if newer {
		if err := uc.presenter.ConversationJoined(ctx, chat); err != nil {
			uc.logger.Warn("failed to join conversation", "chat", chat.StableName, "error", err)
		}
	}

	uc.deliver(ctx, session, ev.StableName, ev.Persons, ev.Messages)

	if ev.Version != nil && uc.table.IsChatInfoStale(ev.StableName, *ev.Version) {
		if fetch := uc.chatInfoFetcher(); fetch != nil {
			uc.logger.Debug("chat info is stale", "chat", ev.StableName,
				"members_version", ev.Version.MembersVersion, "info_version", ev.Version.InfoVersion)
			fetch(ctx, ev.StableName)
		}
	}
	return nil
}

// HandleHistoryPage delivers a page of older messages
func (uc *ReconcilerUsecase) HandleHistoryPage(ctx context.Context, page *domain.HistoryPage) error {
	session, err := uc.slot.Session()
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	uc.table.Open(page.StableName)
	uc.deliver(ctx, session, page.StableName, page.Persons, page.Messages)
	return nil
}

// HandleBuddyList creates chat entries for the chats of a buddy list
func (uc *ReconcilerUsecase) HandleBuddyList(ctx context.Context, ev *domain.BuddyListEvent) {
	for _, group := range ev.Groups {
		for _, buddy := range group.Buddies {
			switch buddy.Type {
			case domain.BuddyTypeChat:
				title := buddy.Friendly
				if title == "" {
					title = buddy.ID
				}
				chat := domain.PartialChat{StableName: buddy.ID, Title: title, Group: group.Name}
				if err := uc.presenter.ChatJoined(ctx, chat); err != nil {
					uc.logger.Warn("failed to update chat entry", "chat", buddy.ID, "error", err)
				}
			case domain.BuddyTypeICQ:
				uc.logger.Debug("buddy", "group", group.Name, "id", buddy.ID, "friendly", buddy.Friendly)
			default:
				uc.logger.Error("unknown buddy type", "group", group.Name, "id", buddy.ID, "type", buddy.Type)
			}
		}
	}
}

// LoadChatInfo attaches a full descriptor and rebuilds the roster
func (uc *ReconcilerUsecase) LoadChatInfo(ctx context.Context, info *domain.ChatInfo) error {
	if info.Group == "" {
		if cached, ok := uc.table.ChatInfo(info.StableName); ok {
			info.Group = cached.Group
		}
	}
	uc.table.AttachChatInfo(info)

	roster := domain.BuildRoster(info.Members)
	if err := uc.presenter.LoadChatInfo(ctx, info, roster); err != nil {
		return fmt.Errorf("load chat info: %w", err)
	}
	return nil
}

func (uc *ReconcilerUsecase) partialChat(ev *domain.ChatStateEvent) domain.PartialChat {
	chat := domain.PartialChat{StableName: ev.StableName, Title: ev.StableName}
	if info, ok := uc.table.ChatInfo(ev.StableName); ok {
		chat.Title = info.Title
		chat.Group = info.Group
	}
	if p := ev.FindPerson(ev.StableName); p != nil && p.Friendly != "" {
		chat.Title = p.Friendly
	}
	return chat
}

// deliver builds and delivers messages, advancing the history cursor
func (uc *ReconcilerUsecase) deliver(ctx context.Context, session domain.Session, stableName string, persons []domain.Person, msgs []domain.IncomingMessage) {
	for _, in := range msgs {
		if in.Text == "" {
			continue
		}
		if in.MsgID != "" && !uc.table.MarkSeen(stableName, in.MsgID) {
			uc.logger.Debug("skipping seen message", "chat", stableName, "msg_id", in.MsgID)
			continue
		}

		author := uc.resolveAuthor(session, stableName, in)
		if author == "" {
			uc.logger.Warn("skipping message without author", "chat", stableName, "msg_id", in.MsgID)
			continue
		}

		msg := domain.Message{
			ID:            in.MsgID,
			ChatName:      stableName,
			Author:        author,
			AuthorDisplay: uc.displayName(stableName, author, in.Outgoing, persons),
			Text:          uc.renderText(ctx, session, in.Text),
			Time:          in.Time,
			Outgoing:      in.Outgoing,
		}
		if err := uc.presenter.DeliverMessage(ctx, msg); err != nil {
			uc.logger.Error("failed to deliver message", "chat", stableName, "msg_id", in.MsgID, "error", err)
			continue
		}
		uc.table.AdvanceCursor(stableName, in.MsgID, in.Time)
	}
}

func (uc *ReconcilerUsecase) resolveAuthor(session domain.Session, stableName string, msg domain.IncomingMessage) string {
	switch {
	case msg.Outgoing:
		return session.AimID
	case domain.IsGroupChat(stableName):
		return msg.Sender
	}
	return stableName
}

func (uc *ReconcilerUsecase) displayName(stableName, author string, outgoing bool, persons []domain.Person) string {
	if outgoing {
		if name := uc.table.OwnDisplayName(); name != "" {
			return name
		}
	}
	for i := range persons {
		if persons[i].StableName == author {
			return persons[i].DisplayName()
		}
	}
	if info, ok := uc.table.ChatInfo(stableName); ok {
		if m := info.FindMember(author); m != nil {
			return m.DisplayName()
		}
	}
	return author
}

// renderText escapes the text and replaces file links with rich links
func (uc *ReconcilerUsecase) renderText(ctx context.Context, session domain.Session, text string) string {
	escaped := html.EscapeString(text)

	matches := fileURLPattern.FindAllStringSubmatch(escaped, -1)
	if len(matches) == 0 {
		return escaped
	}

	var (
		mu    sync.Mutex
		files = make(map[string]*domain.FileInfo)
		seen  = make(map[string]struct{})
	)
	g := new(errgroup.Group)
	g.SetLimit(maxFileLookups)
	for _, m := range matches {
		id := m[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			info, err := uc.icqRepo.FileInfo(ctx, session, id)
			if err != nil {
				uc.logger.Warn("failed to get file info", "file_id", id, "error", err)
				return nil
			}
			mu.Lock()
			files[id] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return fileURLPattern.ReplaceAllStringFunc(escaped, func(url string) string {
		id := fileURLPattern.FindStringSubmatch(url)[1]
		info, ok := files[id]
		if !ok {
			return url
		}
		return fileLink(info)
	})
}

func fileLink(f *domain.FileInfo) string {
	return fmt.Sprintf(`<a href="%s">%s</a> [%s %s]`,
		html.EscapeString(f.Link), html.EscapeString(f.Name), f.MIMESubtype(), domain.PrettySize(f.Size))
}
