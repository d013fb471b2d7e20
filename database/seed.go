package database

import (
	"fmt"
	"os"

	"github.com/yeremiapane/restaurant-ordering/models"
	"github.com/yeremiapane/restaurant-ordering/utils"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// SeedFile describes restaurants with their staff and menu.
type SeedFile struct {
	Restaurants []SeedRestaurant `yaml:"restaurants"`
}

type SeedRestaurant struct {
	Name      string     `yaml:"name"`
	ShortCode string     `yaml:"short_code"`
	Plan      string     `yaml:"plan"`
	Users     []SeedUser `yaml:"users"`
	Menu      []SeedItem `yaml:"menu"`
}

type SeedUser struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type SeedItem struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Price       float64 `yaml:"price"`
	Unavailable bool    `yaml:"unavailable"`
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) (*SeedFile, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	for _, r := range seed.Restaurants {
		if r.Name == "" || r.ShortCode == "" {
			return nil, fmt.Errorf("parse seed: restaurant needs name and short_code")
		}
		for _, u := range r.Users {
			if !models.IsValidRole(u.Role) {
				return nil, fmt.Errorf("parse seed: user %q has unknown role %q", u.Username, u.Role)
			}
		}
	}
	return &seed, nil
}

// Apply inserts the seed inside one transaction. Restaurants whose short
// code already exists are skipped.
func (s *SeedFile) Apply(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, sr := range s.Restaurants {
			var count int64
			tx.Model(&models.Restaurant{}).Where("short_code = ?", sr.ShortCode).Count(&count)
			if count > 0 {
				utils.InfoLogger.Printf("Seed: restaurant %s already present, skipping", sr.ShortCode)
				continue
			}

			plan := sr.Plan
			if plan == "" {
				plan = "free"
			}
			restaurant := models.Restaurant{
				Name:            sr.Name,
				ShortCode:       sr.ShortCode,
				Status:          models.RestaurantActive,
				Plan:            plan,
				AcceptingOrders: true,
			}
			if err := tx.Create(&restaurant).Error; err != nil {
				return err
			}

			for _, su := range sr.Users {
				hashed, err := bcrypt.GenerateFromPassword([]byte(su.Password), bcrypt.DefaultCost)
				if err != nil {
					return err
				}
				user := models.User{
					Username:           su.Username,
					Name:               su.Name,
					Email:              su.Email,
					Password:           string(hashed),
					Role:               su.Role,
					Status:             models.UserActive,
					RestaurantIDs:      []uint{restaurant.ID},
					ActiveRestaurantID: restaurant.ID,
				}
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
			}

			for _, si := range sr.Menu {
				item := models.MenuItem{
					RestaurantID: restaurant.ID,
					Name:         si.Name,
					Description:  si.Description,
					Category:     si.Category,
					Price:        si.Price,
					IsAvailable:  !si.Unavailable,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			utils.InfoLogger.Printf("Seed: restaurant %s created with %d users and %d menu items",
				sr.ShortCode, len(sr.Users), len(sr.Menu))
		}
		return nil
	})
}
