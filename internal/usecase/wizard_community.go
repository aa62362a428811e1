package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"telegram-p2p-trading/internal/domain"
	"telegram-p2p-trading/internal/domain/model"
	"telegram-p2p-trading/internal/domain/ports/repository"
	"telegram-p2p-trading/internal/wizard"
)

// CommunityState carries the draft of the creation wizard.
type CommunityState struct {
	UserID    string           `json:"user_id"`
	Community *model.Community `json:"community,omitempty"`
}

// CommunityUpdateState identifies the community an update wizard edits. The
// record itself is re-read on every turn.
type CommunityUpdateState struct {
	CommunityID string `json:"community_id"`
	UserID      string `json:"user_id"`
}

// fieldStep prompts for and applies one community attribute. apply returns a
// warning to repeat the step with, or a note to show once the value is taken.
type fieldStep struct {
	field  CommunityField
	prompt string
	apply  func(ctx context.Context, t wizard.Turn, c *model.Community) (warn, note *wizard.Notice, err error)
}

func (w *wizardUC) fieldSteps() map[CommunityField]fieldStep {
	return map[CommunityField]fieldStep{
		FieldName:           {FieldName, "community_name_prompt", w.applyName},
		FieldCurrencies:     {FieldCurrencies, "community_currencies_prompt", w.applyCurrencies},
		FieldGroup:          {FieldGroup, "community_group_prompt", w.applyGroup},
		FieldChannels:       {FieldChannels, "community_channels_prompt", w.applyChannels},
		FieldSolvers:        {FieldSolvers, "community_solvers_prompt", w.applySolvers},
		FieldDisputeChannel: {FieldDisputeChannel, "community_dispute_channel_prompt", w.applyDisputeChannel},
	}
}

// creation order of the community wizard
var communitySteps = []CommunityField{
	FieldName, FieldCurrencies, FieldGroup, FieldChannels, FieldSolvers, FieldDisputeChannel,
}

func (w *wizardUC) communityDefinition() wizard.Definition {
	fields := w.fieldSteps()
	steps := make([]wizard.Step, 0, len(communitySteps))
	for i, f := range communitySteps {
		fs := fields[f]
		last := i == len(communitySteps)-1
		steps = append(steps, wizard.Step{
			Name: strings.ToLower(string(f)),
			Enter: func(ctx context.Context, t wizard.Turn, s any) (any, error) {
				st, err := state[CommunityState](s)
				if err != nil {
					return nil, err
				}
				if st.Community == nil {
					u, err := w.caller(ctx, t.UserID)
					if err != nil {
						return nil, err
					}
					st.UserID = u.ID
					st.Community = model.NewCommunityDraft(u.ID)
				}
				return st, w.deps.Sender.Send(ctx, t.UserID, fs.prompt)
			},
			Handle: func(ctx context.Context, t wizard.Turn, s any) (wizard.Result, error) {
				st, err := state[CommunityState](s)
				if err != nil {
					return wizard.Result{}, err
				}
				next := *st.Community
				warn, note, err := fs.apply(ctx, t, &next)
				if err != nil {
					return wizard.Result{}, err
				}
				if warn != nil {
					return wizard.Repeat(warn), nil
				}
				if !last {
					return wizard.Advance(&CommunityState{UserID: st.UserID, Community: &next}).WithNotice(note), nil
				}
				return w.finishCommunity(ctx, t, &next, note)
			},
		})
	}
	return wizard.Definition{
		ID:       CommunityWizardID,
		NewState: func() any { return &CommunityState{} },
		Steps:    steps,
	}
}

func (w *wizardUC) finishCommunity(ctx context.Context, t wizard.Turn, c *model.Community, note *wizard.Notice) (wizard.Result, error) {
	w.sendNote(ctx, t.UserID, note)
	err := w.deps.Communities.Create(ctx, c)
	if errors.Is(err, domain.ErrAlreadyExists) {
		return wizard.Terminate(wizard.Say("community_name_taken", c.Name)), nil
	}
	if err != nil {
		return wizard.Result{}, err
	}
	return wizard.Terminate(wizard.Say("community_created", c.Name)), nil
}

func (w *wizardUC) communityUpdateDefinition(f CommunityField) wizard.Definition {
	fs := w.fieldSteps()[f]
	return wizard.Definition{
		ID:       UpdateWizardID(f),
		NewState: func() any { return &CommunityUpdateState{} },
		Steps: []wizard.Step{{
			Name: strings.ToLower(string(f)),
			Enter: func(ctx context.Context, t wizard.Turn, s any) (any, error) {
				st, err := state[CommunityUpdateState](s)
				if err != nil {
					return nil, err
				}
				u, err := w.caller(ctx, t.UserID)
				if err != nil {
					return nil, err
				}
				st.UserID = u.ID
				if _, err := w.deps.Communities.GetOwned(ctx, st.CommunityID, u.ID); err != nil {
					return nil, err
				}
				return st, w.deps.Sender.Send(ctx, t.UserID, fs.prompt)
			},
			Handle: func(ctx context.Context, t wizard.Turn, s any) (wizard.Result, error) {
				st, err := state[CommunityUpdateState](s)
				if err != nil {
					return wizard.Result{}, err
				}
				c, err := w.deps.Communities.GetOwned(ctx, st.CommunityID, st.UserID)
				if err != nil {
					return wizard.Result{}, err
				}
				warn, note, err := fs.apply(ctx, t, c)
				if err != nil {
					return wizard.Result{}, err
				}
				if warn != nil {
					return wizard.Repeat(warn), nil
				}
				w.sendNote(ctx, t.UserID, note)
				if err := w.deps.Communities.Update(ctx, c); err != nil {
					return wizard.Result{}, err
				}
				return wizard.Terminate(wizard.Say("community_updated", c.Name)), nil
			},
		}},
	}
}

func (w *wizardUC) sendNote(ctx context.Context, tgID int64, n *wizard.Notice) {
	if n == nil {
		return
	}
	if err := w.deps.Sender.Send(ctx, tgID, n.Key, n.Args...); err != nil {
		w.log.Warn().Err(err).Str("key", n.Key).Msg("failed to send note")
	}
}

func (w *wizardUC) applyName(ctx context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	name := strings.TrimSpace(t.Text)
	if !model.ValidCommunityName(name) {
		return wizard.Say("community_name_too_long", model.MaxCommunityNameLength), nil, nil
	}
	if !strings.EqualFold(name, c.Name) {
		taken, err := w.deps.Communities.NameTaken(ctx, name)
		if err != nil {
			return nil, nil, err
		}
		if taken {
			return wizard.Say("community_name_taken", name), nil, nil
		}
	}
	c.Name = name
	return nil, nil, nil
}

func (w *wizardUC) applyCurrencies(_ context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	tokens := strings.Fields(t.Text)
	if len(tokens) > model.MaxCommunityCurrencies {
		return wizard.Say("currencies_too_many", model.MaxCommunityCurrencies), nil, nil
	}
	codes := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		code := strings.ToUpper(tok)
		if _, ok := w.deps.Currencies.Lookup(code); !ok {
			return wizard.Say("currency_invalid", tok), nil, nil
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	c.Currencies = codes
	return nil, nil, nil
}

// singleChatRef accepts exactly one chat handle or id.
func singleChatRef(text string) (string, bool) {
	tokens := strings.Fields(text)
	if len(tokens) != 1 {
		return "", false
	}
	return tokens[0], true
}

// requireAdmin fails closed: only a positive answer lets the reply through.
func (w *wizardUC) requireAdmin(ctx context.Context, tgID int64, ref string) (*wizard.Notice, error) {
	ok, err := w.deps.Admins.IsChatAdmin(ctx, ref, tgID)
	if err != nil {
		return nil, fmt.Errorf("admin check on %s: %w", ref, err)
	}
	if !ok {
		return wizard.Say("not_chat_admin", ref), nil
	}
	return nil, nil
}

func (w *wizardUC) applyGroup(ctx context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	ref, ok := singleChatRef(t.Text)
	if !ok {
		return wizard.Say("chat_ref_invalid"), nil, nil
	}
	warn, err := w.requireAdmin(ctx, t.UserID, ref)
	if warn != nil || err != nil {
		return warn, nil, err
	}
	c.Group = ref
	return nil, nil, nil
}

func (w *wizardUC) applyChannels(ctx context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	tokens := strings.Fields(t.Text)
	if len(tokens) == 0 || len(tokens) > model.MaxOrderChannels {
		return wizard.Say("channels_count"), nil, nil
	}
	for _, ref := range tokens {
		warn, err := w.requireAdmin(ctx, t.UserID, ref)
		if warn != nil || err != nil {
			return warn, nil, err
		}
	}
	c.OrderChannels = model.ChannelsFor(tokens)
	return nil, nil, nil
}

// applySolvers keeps the usernames that resolve to known users and reports
// the rest.
func (w *wizardUC) applySolvers(ctx context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	tokens := strings.Fields(t.Text)
	if len(tokens) > model.MaxCommunitySolvers {
		return wizard.Say("solvers_too_many", model.MaxCommunitySolvers), nil, nil
	}
	solvers := make([]model.Solver, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	var missing []string
	for _, tok := range tokens {
		name := model.NormalizeUsername(tok)
		u, err := w.deps.Users.FindByUsername(ctx, repository.NoTX, name)
		if err != nil && !isNotFound(err) {
			return nil, nil, fmt.Errorf("find solver %s: %w", name, err)
		}
		if u == nil {
			missing = append(missing, name)
			continue
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		solvers = append(solvers, model.Solver{ID: u.ID, Username: u.Username})
	}
	c.Solvers = solvers
	if len(missing) > 0 {
		return nil, wizard.Say("solvers_not_found", strings.Join(missing, ", ")), nil
	}
	return nil, nil, nil
}

func (w *wizardUC) applyDisputeChannel(ctx context.Context, t wizard.Turn, c *model.Community) (*wizard.Notice, *wizard.Notice, error) {
	ref, ok := singleChatRef(t.Text)
	if !ok {
		return wizard.Say("chat_ref_invalid"), nil, nil
	}
	warn, err := w.requireAdmin(ctx, t.UserID, ref)
	if warn != nil || err != nil {
		return warn, nil, err
	}
	c.DisputeChannel = ref
	return nil, nil, nil
}
