package config

import (
	"time"

	"github.com/relatorhq/relator/pkg/types"
)

// Sessions resolves the agent file into runnable session definitions,
// folding the [defaults] section into each declared session. Environment
// overrides are not applied here: they redirect exactly one run, so callers
// scope them with Override to a single selected session instead of letting
// one SESSAO value collapse a whole batch onto the same ID and output name.
func Sessions(af *AgentFile) []types.Session {
	out := make([]types.Session, 0, len(af.Sessions))
	for _, sec := range af.Sessions {
		s := types.Session{
			ID:             sec.ID,
			DateFrom:       sec.DateFrom,
			DateTo:         sec.DateTo,
			Scope:          types.CompetencyScope(sec.Scope),
			Format:         types.SessionFormat(sec.Format),
			OutputDocName:  sec.OutputDocName,
			HeaderTemplate: firstOf(sec.HeaderTemplate, af.Defaults.HeaderTemplate),
			DownloadDir:    firstOf(sec.DownloadDir, af.Defaults.DownloadDir),
			OutputDir:      firstOf(sec.OutputDir, af.Defaults.OutputDir),
			Headless:       af.Defaults.Headless,
			Meta: types.SessionMeta{
				Number:      firstOf(sec.Meta.Number, sec.ID),
				Type:        sec.Meta.Type,
				OpeningDate: sec.Meta.OpeningDate,
				ClosingDate: sec.Meta.ClosingDate,
				Time:        sec.Meta.Time,
			},
			Email: types.EmailSpec{
				Send:       sec.Email.Send,
				Account:    sec.Email.Account,
				Recipients: sec.Email.Recipients,
				CC:         sec.Email.CC,
				BCC:        sec.Email.BCC,
				Subject:    sec.Email.Subject,
				Body:       sec.Email.Body,
				Verbose:    sec.Email.Verbose,
				ForceSync:  sec.Email.ForceSync,
			},
			Retry: resolveRetry(sec.Retry, af.Defaults.Retry),
		}
		out = append(out, s)
	}
	return out
}

// overrideVars are the environment keys Override consults
var overrideVars = []string{
	"SESSAO", "DATA_DE", "DATA_ATE",
	"META_COMPETENCIA", "META_FORMATO", "NOME_DOCX",
	"META_DATA_ABERTURA", "META_DATA_ENCERRAMENTO",
	"EMAIL_ACCOUNT", "EMAIL_TO", "EMAIL_SUBJECT", "EMAIL_BODY",
}

// HasOverrides reports whether env carries any session override value
func HasOverrides(env Env) bool {
	for _, name := range overrideVars {
		if env.Get(name, "") != "" {
			return true
		}
	}
	return false
}

// Override applies environment overrides to one session. Overrides exist so
// an operator can redirect a scheduled run (different date range, recipient,
// signer metadata) without editing the agent file.
func Override(s types.Session, env Env) types.Session {
	s.ID = env.Get("SESSAO", s.ID)
	s.DateFrom = env.Get("DATA_DE", s.DateFrom)
	s.DateTo = env.Get("DATA_ATE", s.DateTo)
	s.Scope = types.CompetencyScope(env.Get("META_COMPETENCIA", string(s.Scope)))
	s.Format = types.SessionFormat(env.Get("META_FORMATO", string(s.Format)))
	s.OutputDocName = env.Get("NOME_DOCX", s.OutputDocName)
	s.Meta.OpeningDate = env.Get("META_DATA_ABERTURA", s.Meta.OpeningDate)
	s.Meta.ClosingDate = env.Get("META_DATA_ENCERRAMENTO", s.Meta.ClosingDate)
	s.Email.Account = env.Get("EMAIL_ACCOUNT", s.Email.Account)
	s.Email.Recipients = overrideList(env, "EMAIL_TO", s.Email.Recipients)
	s.Email.Subject = env.Get("EMAIL_SUBJECT", s.Email.Subject)
	s.Email.Body = env.Get("EMAIL_BODY", s.Email.Body)
	return s
}

func resolveRetry(own, def retrySection) types.RetryPolicy {
	p := types.RetryPolicy{
		MaxAttempts: own.MaxAttempts,
		Backoff:     time.Duration(own.Backoff),
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.Backoff == 0 {
		p.Backoff = time.Duration(def.Backoff)
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	return p
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func overrideList(env Env, key string, def []string) []string {
	if v := env.Get(key, ""); v != "" {
		return []string{v}
	}
	return def
}
