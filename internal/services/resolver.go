package services

import (
	"sort"

	"github.com/evsite/tankleague/internal/models"
	"github.com/evsite/tankleague/internal/repositories"
	"github.com/evsite/tankleague/pkg/errors"
	"gorm.io/gorm"
)

// UpgradeOption is one reachable destination with its cost breakdown.
// ManuCost is an independently computed alternative for teams holding one
// of the destination's manufacturers; it does not influence the search
// ordering.
type UpgradeOption struct {
	FromTank                string           `json:"from_tank"`
	ToTank                  string           `json:"to_tank"`
	ToTankID                uint             `json:"to_tank_id"`
	BaseCost                int64            `json:"base_cost"`
	KitDiscount             int64            `json:"kit_discount"`
	RequiredKitTier         string           `json:"required_kit_tier,omitempty"`
	TotalCost               int64            `json:"total_cost"`
	AvailableInManufacturer bool             `json:"available_in_manufacturer"`
	ManuCost                *int64           `json:"manu_cost,omitempty"`
	RequiredKits            models.KitCounts `json:"required_kits"`
	ToBattleRating          float64          `json:"to_battle_rating"`
}

type ResolverService struct {
	db    *gorm.DB
	teams *repositories.TeamRepository
	tanks *repositories.TankRepository
}

func NewResolverService(db *gorm.DB, teams *repositories.TeamRepository, tanks *repositories.TankRepository) *ResolverService {
	return &ResolverService{db: db, teams: teams, tanks: tanks}
}

// loadOwned validates that the team owns the upgradable ownership record
// and returns it.
func (s *ResolverService) loadOwned(teamID, teamTankID uint) (*models.TeamTank, error) {
	tt, err := s.teams.GetTeamTank(s.db, teamTankID)
	if err != nil {
		return nil, err
	}
	if tt.TeamID != teamID {
		return nil, errors.New(errors.ErrCodeOwnershipViolation, "you do not own this tank")
	}
	if !tt.IsUpgradable {
		return nil, errors.New(errors.ErrCodeOwnershipViolation, "this tank is not upgradable")
	}
	return tt, nil
}

// GetPossibleUpgrades computes the best path from an owned tank to every
// reachable tank over the in-graph upgrade edges. minimizeKits selects the
// weighted-kit-count ordering; otherwise paths are ordered by accumulated
// cost alone.
func (s *ResolverService) GetPossibleUpgrades(teamID, teamTankID uint, minimizeKits bool) ([]UpgradeOption, error) {
	team, err := s.teams.GetByID(teamID)
	if err != nil {
		return nil, err
	}
	tt, err := s.loadOwned(teamID, teamTankID)
	if err != nil {
		return nil, err
	}

	edges, err := s.tanks.ListGraphEdges()
	if err != nil {
		return nil, err
	}

	adj := make(map[uint][]searchEdge)
	tanksByID := map[uint]*models.Tank{tt.TankID: &tt.Tank}
	for i := range edges {
		e := &edges[i]
		adj[e.FromTankID] = append(adj[e.FromTankID], searchEdge{
			to:           e.ToTankID,
			cost:         e.Cost,
			requiredTier: e.RequiredKitTier,
		})
		tanksByID[e.FromTankID] = &e.FromTank
		tanksByID[e.ToTankID] = &e.ToTank
	}

	best := runUpgradeSearch(adj, tt.TankID, minimizeKits)
	manuIDs := team.ManufacturerIDs()

	options := make([]UpgradeOption, 0, len(best))
	for tankID, state := range best {
		if tankID == tt.TankID {
			continue
		}
		dest := tanksByID[tankID]
		opt := UpgradeOption{
			FromTank:       tt.Tank.Name,
			ToTank:         dest.Name,
			ToTankID:       dest.ID,
			BaseCost:       state.base,
			KitDiscount:    state.base - state.cost,
			TotalCost:      state.cost,
			RequiredKits:   state.kits,
			ToBattleRating: dest.BattleRating,
		}
		if state.hops == 1 {
			opt.RequiredKitTier = state.firstTier
		}
		if dest.HasManufacturer(manuIDs) {
			opt.AvailableInManufacturer = true
			cost := models.UpgradeCost(tt.Tank.Price, dest.Price, dest.Rank)
			opt.ManuCost = &cost
		}
		options = append(options, opt)
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].TotalCost != options[j].TotalCost {
			return options[i].TotalCost < options[j].TotalCost
		}
		return options[i].ToTank < options[j].ToTank
	})

	return options, nil
}

// GetDirectUpgrades lists only the original single-hop edges from an owned
// tank. For auction-sourced ownership records the frozen purchase value
// replaces the static edge cost as the base.
func (s *ResolverService) GetDirectUpgrades(teamID, teamTankID uint) ([]UpgradeOption, error) {
	team, err := s.teams.GetByID(teamID)
	if err != nil {
		return nil, err
	}
	tt, err := s.loadOwned(teamID, teamTankID)
	if err != nil {
		return nil, err
	}

	paths, err := s.tanks.ListOutgoingPaths(tt.TankID)
	if err != nil {
		return nil, err
	}

	manuIDs := team.ManufacturerIDs()
	fromPrice := tt.Tank.Price
	if tt.FromAuctions {
		fromPrice = tt.Value
	}

	options := make([]UpgradeOption, 0, len(paths))
	for i := range paths {
		p := &paths[i]
		dest := &p.ToTank

		base := p.Cost
		if tt.FromAuctions {
			base = models.UpgradeCost(fromPrice, dest.Price, dest.Rank)
		}
		discount := models.KitPrice(p.RequiredKitTier)
		if discount > base {
			discount = base
		}

		opt := UpgradeOption{
			FromTank:        tt.Tank.Name,
			ToTank:          dest.Name,
			ToTankID:        dest.ID,
			BaseCost:        base,
			KitDiscount:     discount,
			RequiredKitTier: p.RequiredKitTier,
			TotalCost:       base - discount,
			ToBattleRating:  dest.BattleRating,
		}
		if p.RequiredKitTier != "" {
			opt.RequiredKits.Add(p.RequiredKitTier, 1)
		}
		if dest.HasManufacturer(manuIDs) {
			opt.AvailableInManufacturer = true
			cost := models.UpgradeCost(fromPrice, dest.Price, dest.Rank)
			opt.ManuCost = &cost
		}
		options = append(options, opt)
	}

	sort.Slice(options, func(i, j int) bool {
		if options[i].TotalCost != options[j].TotalCost {
			return options[i].TotalCost < options[j].TotalCost
		}
		return options[i].ToTank < options[j].ToTank
	})

	return options, nil
}

// FindUpgradeOption resolves the best path to one requested destination.
func (s *ResolverService) FindUpgradeOption(teamID, teamTankID, toTankID uint, minimizeKits bool) (*UpgradeOption, error) {
	options, err := s.GetPossibleUpgrades(teamID, teamTankID, minimizeKits)
	if err != nil {
		return nil, err
	}
	for i := range options {
		if options[i].ToTankID == toTankID {
			return &options[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeNoValidPath, "no upgrade path to the requested tank")
}

// FindDirectOption resolves a single-hop edge to one requested
// destination.
func (s *ResolverService) FindDirectOption(teamID, teamTankID, toTankID uint) (*UpgradeOption, error) {
	options, err := s.GetDirectUpgrades(teamID, teamTankID)
	if err != nil {
		return nil, err
	}
	for i := range options {
		if options[i].ToTankID == toTankID {
			return &options[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeNoValidPath, "no direct upgrade path to the requested tank")
}
