package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/app"
	"github.com/coderoom/coderoom/internal/core"
	"github.com/coderoom/coderoom/internal/domain"
)

// dispatch routes one inbound frame by its envelope type. Any decodable
// frame counts as activity and cancels a pending disconnect timer, so a
// reconnecting client re-arms its presence before the first join reply.
func (ctl *Controller) dispatch(sid core.ConnID, c *wsConn, data []byte) {
	var env app.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		return
	}
	ctl.Orch.Activity(sid)

	switch env.Type {
	case app.KindJoin:
		ctl.handleJoin(sid, c, data)
	case app.KindLeave:
		ctl.handleLeave(sid, c)
	case app.KindCodeChange:
		ctl.handleCodeChange(sid, data)
	case app.KindSyncCode:
		ctl.handleSyncCode(sid, data)
	case app.KindChat:
		ctl.handleChat(sid, data)
	case app.KindPing:
		ctl.sendJSON(c, app.PongReply{Type: app.KindPong})
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

// handleJoin admits the connection as a participant. An invalid display
// name forcibly terminates the connection: anonymous identities are
// rejected, not recovered.
func (ctl *Controller) handleJoin(sid core.ConnID, c *wsConn, data []byte) {
	var p app.JoinRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}

	if err := ctl.Orch.Join(sid, p.RoomID, p.Username); err != nil {
		if errors.Is(err, domain.ErrInvalidIdentity) {
			c.Close()
			return
		}
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("join failed")
	}
}

// handleLeave treats an explicit departure like a transport closure:
// the grace window still applies, so a clean shutdown and a dropped
// link look identical to the rest of the room.
func (ctl *Controller) handleLeave(sid core.ConnID, c *wsConn) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	ctl.Orch.Disconnected(sid, c)
}

func (ctl *Controller) handleCodeChange(sid core.ConnID, data []byte) {
	var p app.CodeChangeRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad code-change payload")
		return
	}
	ctl.Orch.CodeChange(sid, p.RoomID, p.Code)
}

func (ctl *Controller) handleSyncCode(sid core.ConnID, data []byte) {
	var p app.SyncCodeRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad sync-code payload")
		return
	}
	ctl.Orch.SyncCode(sid, p.SocketID, p.Code)
}

func (ctl *Controller) handleChat(sid core.ConnID, data []byte) {
	var p app.ChatRequest
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	if ctl.ChatLimit != nil && !ctl.ChatLimit.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("chat rate limited")
		return
	}
	ctl.Orch.Chat(sid, p.RoomID, p.Username, p.Message)
}
