package seeder

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Rana718/fakeseed/internal/types"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

const (
	intMin     = 1
	intMax     = 20000
	tinyIntMin = 0
	tinyIntMax = 2
	yearMin    = 1901
	yearMax    = 2155

	defaultDecimalMax    = 10000.0
	defaultDecimalPlaces = 2

	// Unbounded marks a value space too large to exhaust.
	Unbounded = math.MaxUint64

	// fallback enumeration never walks further than this
	maxScan = 1 << 22
)

// charAlphabet holds letters, digits and punctuation; no space, because CHAR
// columns strip trailing blanks.
var charAlphabet = func() string {
	var b strings.Builder
	for c := byte(33); c <= 126; c++ {
		b.WriteByte(c)
	}
	return b.String()
}()

// foldedAlphabet lists the symbols that stay distinct under a case-insensitive
// collation; capacity and fallback enumeration for strings are built on it.
var foldedAlphabet = func() string {
	var b strings.Builder
	for c := byte(33); c <= 126; c++ {
		if c >= 'a' && c <= 'z' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}()

var (
	dateFloor      = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	timestampFloor = time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	timestampCeil  = time.Date(2037, 12, 31, 23, 59, 59, 0, time.UTC)
)

var errNoUnusedValue = errors.New("no unused value")

// GenerationContext holds the uniqueness sets of one row batch. Keys are the
// column name, or the joined member names for a composite index.
type GenerationContext struct {
	seen map[string]map[string]struct{}
}

func NewGenerationContext() *GenerationContext {
	return &GenerationContext{seen: make(map[string]map[string]struct{})}
}

func (c *GenerationContext) Contains(column, key string) bool {
	_, ok := c.seen[column][key]
	return ok
}

func (c *GenerationContext) Add(column, key string) {
	set, ok := c.seen[column]
	if !ok {
		set = make(map[string]struct{})
		c.seen[column] = set
	}
	set[key] = struct{}{}
}

func (c *GenerationContext) Len(column string) int {
	return len(c.seen[column])
}

// DataGenerator synthesizes single column values from a seeded fake-data source.
type DataGenerator struct {
	fake        *gofakeit.Faker
	maxAttempts int
	now         time.Time
}

// NewDataGenerator seeds the source with seed, or with the clock when seed is 0.
func NewDataGenerator(seed int64, maxAttempts int) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxAttempts <= 0 {
		maxAttempts = 1000
	}
	return &DataGenerator{
		fake:        gofakeit.New(seed),
		maxAttempts: maxAttempts,
		now:         time.Now().UTC(),
	}
}

func (g *DataGenerator) Faker() *gofakeit.Faker {
	return g.fake
}

// GenerateValue returns one value for col. Primary and unique columns draw until
// the value is absent from gc, then record it; other columns draw once.
func (g *DataGenerator) GenerateValue(col types.ColumnMetadata, gc *GenerationContext) (interface{}, error) {
	if !col.Distinct() {
		return g.Draw(col), nil
	}
	return g.drawDistinct(col, gc, col.Name)
}

func (g *DataGenerator) drawDistinct(col types.ColumnMetadata, gc *GenerationContext, key string) (interface{}, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		v := g.Draw(col)
		if v == nil {
			return nil, nil
		}
		k := valueKey(v)
		if !gc.Contains(key, k) {
			gc.Add(key, k)
			return v, nil
		}
	}

	// random draws keep colliding as the set fills up; walk the value space instead
	capacity := g.Capacity(col)
	if capacity == Unbounded || capacity == 0 {
		return nil, errNoUnusedValue
	}
	steps := capacity
	if steps > maxScan {
		steps = maxScan
	}
	start := g.fake.Uint64() % capacity
	for i := uint64(0); i < steps; i++ {
		v := g.nth(col, (start+i)%capacity)
		k := valueKey(v)
		if !gc.Contains(key, k) {
			gc.Add(key, k)
			return v, nil
		}
	}
	return nil, errNoUnusedValue
}

// Draw produces one value with no uniqueness tracking. Unsupported types and
// enums without literals yield nil.
func (g *DataGenerator) Draw(col types.ColumnMetadata) interface{} {
	switch col.Family {
	case types.FamilyInteger:
		return g.fake.Number(intMin, intMax)
	case types.FamilyTinyInt:
		return g.fake.Number(tinyIntMin, tinyIntMax)
	case types.FamilyBoolean:
		return g.fake.Bool()
	case types.FamilyChar:
		return g.randomString(charAlphabet, charSize(col))
	case types.FamilyVarchar:
		if col.Size == nil {
			return g.freeText(col.Name, 0)
		}
		return g.freeText(col.Name, *col.Size)
	case types.FamilyText:
		if col.Size != nil {
			return g.freeText(col.Name, *col.Size)
		}
		return g.freeText(col.Name, 0)
	case types.FamilyDecimal:
		bound, places := decimalBounds(col)
		v := roundTo(g.fake.Float64Range(0, bound), places)
		return math.Min(v, bound)
	case types.FamilyFloat:
		return roundTo(g.fake.Float64Range(0, defaultDecimalMax), defaultDecimalPlaces)
	case types.FamilyDate:
		return g.fake.Date().UTC().Format(time.DateOnly)
	case types.FamilyTime:
		return g.fake.Date().UTC().Format(time.TimeOnly)
	case types.FamilyDateTime:
		return g.fake.Date().UTC().Truncate(time.Second)
	case types.FamilyTimestamp:
		return g.fake.DateRange(timestampFloor, timestampCeil).UTC().Truncate(time.Second)
	case types.FamilyYear:
		return g.fake.Number(yearMin, yearMax)
	case types.FamilyEnum:
		if len(col.EnumValues) == 0 {
			return nil
		}
		return g.fake.RandomString(col.EnumValues)
	case types.FamilyUUID:
		id, err := uuid.NewRandomFromReader(g.fake.Rand)
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	default:
		return nil
	}
}

// Capacity is the number of distinct values Draw can produce for col, as seen
// by a case-insensitive store. Columns that only ever yield nil report 0.
func (g *DataGenerator) Capacity(col types.ColumnMetadata) uint64 {
	switch col.Family {
	case types.FamilyInteger:
		return intMax - intMin + 1
	case types.FamilyTinyInt:
		return tinyIntMax - tinyIntMin + 1
	case types.FamilyBoolean:
		return 2
	case types.FamilyChar:
		return powSat(uint64(len(foldedAlphabet)), charSize(col))
	case types.FamilyVarchar, types.FamilyText:
		if col.Size == nil {
			return Unbounded
		}
		return powSat(uint64(len(foldedAlphabet)), *col.Size)
	case types.FamilyDecimal:
		bound, places := decimalBounds(col)
		steps := powSat(10, places)
		if bound >= float64(Unbounded)/float64(steps) {
			return Unbounded
		}
		return mulSat(uint64(bound), steps) + 1
	case types.FamilyFloat:
		return uint64(defaultDecimalMax)*100 + 1
	case types.FamilyDate:
		return uint64(g.now.Sub(dateFloor).Hours()/24) + 1
	case types.FamilyTime:
		return 24 * 60 * 60
	case types.FamilyDateTime:
		return uint64(g.now.Sub(dateFloor).Seconds()) + 1
	case types.FamilyTimestamp:
		return uint64(timestampCeil.Sub(timestampFloor).Seconds()) + 1
	case types.FamilyYear:
		return yearMax - yearMin + 1
	case types.FamilyEnum:
		distinct := make(map[string]struct{}, len(col.EnumValues))
		for _, v := range col.EnumValues {
			distinct[strings.ToLower(v)] = struct{}{}
		}
		return uint64(len(distinct))
	case types.FamilyUUID:
		return Unbounded
	default:
		return 0
	}
}

// nth maps an index in [0, Capacity) to a concrete value.
func (g *DataGenerator) nth(col types.ColumnMetadata, i uint64) interface{} {
	switch col.Family {
	case types.FamilyInteger:
		return intMin + int(i)
	case types.FamilyTinyInt:
		return tinyIntMin + int(i)
	case types.FamilyBoolean:
		return i == 1
	case types.FamilyChar:
		return indexString(i, charSize(col))
	case types.FamilyVarchar, types.FamilyText:
		return indexString(i, *col.Size)
	case types.FamilyDecimal:
		_, places := decimalBounds(col)
		return float64(i) / math.Pow(10, float64(places))
	case types.FamilyFloat:
		return float64(i) / 100
	case types.FamilyDate:
		return dateFloor.AddDate(0, 0, int(i)).Format(time.DateOnly)
	case types.FamilyTime:
		return fmt.Sprintf("%02d:%02d:%02d", i/3600, (i/60)%60, i%60)
	case types.FamilyDateTime:
		return dateFloor.Add(time.Duration(i) * time.Second)
	case types.FamilyTimestamp:
		return timestampFloor.Add(time.Duration(i) * time.Second)
	case types.FamilyYear:
		return yearMin + int(i)
	case types.FamilyEnum:
		return col.EnumValues[i]
	default:
		return nil
	}
}

func (g *DataGenerator) randomString(alphabet string, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[g.fake.Number(0, len(alphabet)-1)]
	}
	return string(b)
}

// freeText returns lorem or name-hinted text of at most limit characters;
// limit 0 means unbounded.
func (g *DataGenerator) freeText(column string, limit int) string {
	var text string
	if hint := nameHint(g.fake, column); hint != nil {
		text = hint()
	} else if limit == 0 {
		text = g.fake.Paragraph(1, g.fake.Number(2, 5), g.fake.Number(5, 12), " ")
	} else {
		text = g.fake.Sentence(g.fake.Number(3, 12))
	}
	if limit > 0 {
		text = truncateRunes(text, limit)
	}
	return text
}

// nameHint picks a realistic generator from the column name, the way a human
// filling a users table would.
func nameHint(f *gofakeit.Faker, column string) func() string {
	name := strings.ToLower(column)
	switch {
	case strings.Contains(name, "email"):
		return f.Email
	case strings.Contains(name, "firstname") || strings.Contains(name, "first_name"):
		return f.FirstName
	case strings.Contains(name, "lastname") || strings.Contains(name, "last_name"):
		return f.LastName
	case strings.Contains(name, "username") || name == "user":
		return f.Username
	case strings.Contains(name, "phone") || strings.Contains(name, "telephone"):
		return f.Phone
	case strings.Contains(name, "street") || strings.Contains(name, "address"):
		return f.Street
	case strings.Contains(name, "city"):
		return f.City
	case strings.Contains(name, "country"):
		return f.Country
	case strings.Contains(name, "url") || strings.Contains(name, "website"):
		return f.URL
	default:
		return nil
	}
}

func charSize(col types.ColumnMetadata) int {
	if col.Size == nil {
		return 1
	}
	return *col.Size
}

// decimalBounds returns the inclusive upper bound and the rounding places.
func decimalBounds(col types.ColumnMetadata) (float64, int) {
	if col.Size != nil && col.DecimalPlace != nil {
		return math.Pow(10, float64(*col.Size-*col.DecimalPlace)) - 1, *col.DecimalPlace
	}
	return defaultDecimalMax, defaultDecimalPlaces
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ")
}

// indexString renders i in base len(foldedAlphabet), left padded to n symbols.
func indexString(i uint64, n int) string {
	base := uint64(len(foldedAlphabet))
	b := make([]byte, n)
	for pos := n - 1; pos >= 0; pos-- {
		b[pos] = foldedAlphabet[i%base]
		i /= base
	}
	return string(b)
}

func powSat(base uint64, exp int) uint64 {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		if result > Unbounded/base {
			return Unbounded
		}
		result *= base
	}
	return result
}

func mulSat(a, b uint64) uint64 {
	if a != 0 && b > Unbounded/a {
		return Unbounded
	}
	return a * b
}

// valueKey normalises a value for uniqueness checks. Strings fold case so that
// values colliding under a case-insensitive collation count as duplicates.
func valueKey(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.ToLower(val)
	case time.Time:
		return val.Format(time.DateTime)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	default:
		return fmt.Sprint(val)
	}
}
