// Пакет credentials — генерация логина, email и начального пароля
// для новой учётной записи.
//
// Логин строится из отображаемого имени: "María Pérez" → "maria.perez_3f9a".
// Email — "<логин>@<домен>", домен передаётся при создании генератора.
package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/fenix/people-module/internal/domain/textfold"
)

const (
	// DefaultDomain — домен логинов по умолчанию.
	DefaultDomain = "fenix.local"
	// MinPasswordLength — более короткий пароль заменяется сгенерированным.
	MinPasswordLength = 6
	// GeneratedPasswordLength — длина сгенерированного пароля.
	GeneratedPasswordLength = 10
	// HashCost — стоимость bcrypt.
	HashCost = 10

	// fallbackSlug используется, если из имени не осталось ни одного [a-z0-9].
	fallbackSlug = "usuario"
	// suffixBytes — 2 байта дают 4 hex-символа суффикса.
	suffixBytes = 2
)

// passwordAlphabet — без визуально похожих символов (0/O, 1/l/I).
const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%*?"

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Input — исходные данные для генерации. Пустые поля генерируются.
type Input struct {
	FullName string
	Username string
	Email    string
	Password string
}

// Credentials — результат генерации.
type Credentials struct {
	Username     string
	Email        string
	Password     string // открытый текст, отдаётся вызывающему один раз
	PasswordHash string

	// Slug — основа логина, нужна для повторной генерации.
	Slug string
	// ExplicitUsername / ExplicitEmail — значения пришли из запроса.
	ExplicitUsername bool
	ExplicitEmail    bool
	// GeneratedPassword — пароль сгенерирован, а не передан.
	GeneratedPassword bool
}

// Explicit сообщает, передал ли вызывающий логин или email явно.
func (c *Credentials) Explicit() bool {
	return c.ExplicitUsername || c.ExplicitEmail
}

// Generator — генератор учётных данных с фиксированным доменом.
type Generator struct {
	domain string
	rand   io.Reader
	cost   int
}

// NewGenerator создаёт генератор для домена domain.
// Пустой домен заменяется на DefaultDomain.
func NewGenerator(domain string) *Generator {
	return NewGeneratorWithRand(domain, rand.Reader)
}

// NewGeneratorWithRand создаёт генератор с указанным источником случайности.
func NewGeneratorWithRand(domain string, r io.Reader) *Generator {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "@")
	if domain == "" {
		domain = DefaultDomain
	}
	return &Generator{domain: domain, rand: r, cost: HashCost}
}

// Domain возвращает домен генератора.
func (g *Generator) Domain() string {
	return g.domain
}

// Slug переводит имя в нижний регистр без диакритики, схлопывает
// каждую последовательность символов вне [a-z0-9] в одну точку
// и обрезает точки по краям.
func Slug(fullName string) string {
	s := nonSlugRun.ReplaceAllString(textfold.Fold(fullName), ".")
	s = strings.Trim(s, ".")
	if s == "" {
		return fallbackSlug
	}
	return s
}

// Generate дополняет Input недостающими логином, email и паролем
// и вычисляет bcrypt-хэш пароля.
func (g *Generator) Generate(in Input) (*Credentials, error) {
	c := &Credentials{
		Slug:     Slug(in.FullName),
		Username: strings.TrimSpace(in.Username),
		Email:    strings.TrimSpace(in.Email),
		Password: in.Password,
	}
	c.ExplicitUsername = c.Username != ""
	c.ExplicitEmail = c.Email != ""

	if !c.ExplicitUsername {
		username, err := g.username(c.Slug)
		if err != nil {
			return nil, err
		}
		c.Username = username
	}
	if !c.ExplicitEmail {
		c.Email = c.Username + "@" + g.domain
	}

	if utf8.RuneCountInString(c.Password) < MinPasswordLength {
		password, err := g.password()
		if err != nil {
			return nil, err
		}
		c.Password = password
		c.GeneratedPassword = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), g.cost)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}
	c.PasswordHash = string(hash)

	return c, nil
}

// Regenerate выбирает новый случайный суффикс логина и заново выводит email.
// Пароль и хэш не меняются. Явно переданные значения не трогаются.
func (g *Generator) Regenerate(c *Credentials) (*Credentials, error) {
	next := *c
	if !c.ExplicitUsername {
		username, err := g.username(c.Slug)
		if err != nil {
			return nil, err
		}
		next.Username = username
	}
	if !c.ExplicitEmail {
		next.Email = next.Username + "@" + g.domain
	}
	return &next, nil
}

func (g *Generator) username(slug string) (string, error) {
	buf := make([]byte, suffixBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("генерация суффикса логина: %w", err)
	}
	return slug + "_" + hex.EncodeToString(buf), nil
}

func (g *Generator) password() (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, GeneratedPasswordLength)
	for i := range out {
		n, err := rand.Int(g.rand, max)
		if err != nil {
			return "", fmt.Errorf("генерация пароля: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
