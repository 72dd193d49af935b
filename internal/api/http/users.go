package http

import (
	"net/http"

	"github.com/sportbet/platform/internal/api/dto"
	"github.com/sportbet/platform/internal/betting"
	"github.com/sportbet/platform/internal/model"
)

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Email == "" {
		s.fail(w, r, &betting.ValidationError{Fields: []string{"email"}})
		return
	}
	if req.Balance < 0 {
		s.fail(w, r, &betting.ValidationError{Fields: []string{"balance"}})
		return
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	user := &model.User{
		Email:        req.Email,
		Nickname:     req.Nickname,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		BalanceCents: model.CentsFromFloat(req.Balance),
	}
	id, err := s.users.Create(ctx, user)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.UserResponse{
		UserID:    id,
		Email:     user.Email,
		Nickname:  user.Nickname,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Balance:   model.CentsToFloat(user.BalanceCents),
	})
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	user, err := s.users.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.UserResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Nickname:  user.Nickname,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Balance:   model.CentsToFloat(user.BalanceCents),
	})
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTeamRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var missing []string
	if req.Name == "" {
		missing = append(missing, "name")
	}
	if req.Sport == "" {
		missing = append(missing, "sport")
	}
	if len(missing) > 0 {
		s.fail(w, r, &betting.ValidationError{Fields: missing})
		return
	}
	if req.Rating == 0 {
		req.Rating = 1500
	}

	ctx, cancel := s.storeCtx(r)
	defer cancel()

	team := &model.Team{
		Name:   model.NormalizeTeamName(req.Name),
		Sport:  req.Sport,
		Rating: req.Rating,
	}
	id, err := s.teams.Create(ctx, team)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	team.ID = id
	s.prop.TeamUpserted(ctx, team)

	writeJSON(w, http.StatusCreated, dto.TeamResponse{
		TeamID: id,
		Name:   team.Name,
		Sport:  team.Sport,
		Rating: team.Rating,
	})
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeCtx(r)
	defer cancel()

	team, err := s.teams.Get(ctx, r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.TeamResponse{
		TeamID: team.ID,
		Name:   team.Name,
		Sport:  team.Sport,
		Rating: team.Rating,
	})
}
