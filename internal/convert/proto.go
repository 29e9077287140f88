// Package convert maps domain types to and from the google.protobuf.Struct
// payloads of the sehatin.v1.Sehatin service.
package convert

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/and161185/sehatin/internal/model"
)

// Payload field names.
const (
	FieldAccessToken = "access_token"
	FieldUser        = "user"
	FieldEmail       = "email"
	FieldPassword    = "password"
	FieldName        = "name"
	FieldAge         = "age"
	FieldGender      = "gender"
	FieldID          = "id"
	FieldTable       = "table"
	FieldRecord      = "record"
	FieldRecords     = "records"
	FieldEqColumn    = "eq_column"
	FieldEqValue     = "eq_value"
	FieldOrderColumn = "order_column"
	FieldAscending   = "ascending"
)

// ErrMalformed reports a payload missing a field or carrying the wrong kind.
var ErrMalformed = errors.New("malformed payload")

// --- helpers ---

func field(s *structpb.Struct, key string) (*structpb.Value, bool) {
	if s == nil {
		return nil, false
	}
	v, ok := s.GetFields()[key]
	if !ok || v == nil {
		return nil, false
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, false
	}
	return v, true
}

func str(s *structpb.Struct, key string) (string, error) {
	v, ok := field(s, key)
	if !ok {
		return "", nil
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s: want string", ErrMalformed, key)
	}
	return sv.StringValue, nil
}

func integer(s *structpb.Struct, key string) (int, bool, error) {
	v, ok := field(s, key)
	if !ok {
		return 0, false, nil
	}
	nv, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || nv.NumberValue != math.Trunc(nv.NumberValue) {
		return 0, false, fmt.Errorf("%w: %s: want integer", ErrMalformed, key)
	}
	return int(nv.NumberValue), true, nil
}

func object(s *structpb.Struct, key string) (*structpb.Struct, error) {
	v, ok := field(s, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing", ErrMalformed, key)
	}
	sv, ok := v.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s: want object", ErrMalformed, key)
	}
	return sv.StructValue, nil
}

// --- User / Session ---

// UserToStruct encodes u.
func UserToStruct(u model.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldID:     structpb.NewStringValue(u.ID),
		FieldEmail:  structpb.NewStringValue(u.Email),
		FieldName:   structpb.NewStringValue(u.Name),
		FieldAge:    structpb.NewNumberValue(float64(u.Age)),
		FieldGender: structpb.NewStringValue(string(u.Gender)),
	}}
}

// UserFromStruct decodes a user payload.
func UserFromStruct(s *structpb.Struct) (model.User, error) {
	var (
		u   model.User
		g   string
		err error
	)
	if u.ID, err = str(s, FieldID); err != nil {
		return model.User{}, err
	}
	if u.Email, err = str(s, FieldEmail); err != nil {
		return model.User{}, err
	}
	if u.Name, err = str(s, FieldName); err != nil {
		return model.User{}, err
	}
	if u.Age, _, err = integer(s, FieldAge); err != nil {
		return model.User{}, err
	}
	if g, err = str(s, FieldGender); err != nil {
		return model.User{}, err
	}
	u.Gender = model.Gender(g)
	if u.ID == "" {
		return model.User{}, fmt.Errorf("%w: user id: missing", ErrMalformed)
	}
	return u, nil
}

// SessionToStruct encodes a session response.
func SessionToStruct(sess model.Session) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldAccessToken: structpb.NewStringValue(sess.AccessToken),
		FieldUser:        structpb.NewStructValue(UserToStruct(sess.User)),
	}}
}

// SessionFromStruct decodes a session response.
func SessionFromStruct(s *structpb.Struct) (model.Session, error) {
	tok, err := str(s, FieldAccessToken)
	if err != nil {
		return model.Session{}, err
	}
	if tok == "" {
		return model.Session{}, fmt.Errorf("%w: %s: missing", ErrMalformed, FieldAccessToken)
	}
	us, err := object(s, FieldUser)
	if err != nil {
		return model.Session{}, err
	}
	u, err := UserFromStruct(us)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{AccessToken: tok, User: u}, nil
}

// --- Auth requests ---

// SignUpRequest is the decoded SignUp payload.
type SignUpRequest struct {
	Email    string
	Password string
	Profile  model.ProfileDefaults
}

// SignUpToStruct encodes a SignUp request. Zero profile fields are omitted.
func SignUpToStruct(r SignUpRequest) *structpb.Struct {
	f := map[string]*structpb.Value{
		FieldEmail:    structpb.NewStringValue(r.Email),
		FieldPassword: structpb.NewStringValue(r.Password),
	}
	if r.Profile.Name != "" {
		f[FieldName] = structpb.NewStringValue(r.Profile.Name)
	}
	if r.Profile.Age > 0 {
		f[FieldAge] = structpb.NewNumberValue(float64(r.Profile.Age))
	}
	if r.Profile.Gender != "" {
		f[FieldGender] = structpb.NewStringValue(string(r.Profile.Gender))
	}
	return &structpb.Struct{Fields: f}
}

// SignUpFromStruct decodes a SignUp request.
func SignUpFromStruct(s *structpb.Struct) (SignUpRequest, error) {
	var (
		r   SignUpRequest
		g   string
		err error
	)
	if r.Email, r.Password, err = CredentialsFromStruct(s); err != nil {
		return SignUpRequest{}, err
	}
	if r.Profile.Name, err = str(s, FieldName); err != nil {
		return SignUpRequest{}, err
	}
	if r.Profile.Age, _, err = integer(s, FieldAge); err != nil {
		return SignUpRequest{}, err
	}
	if g, err = str(s, FieldGender); err != nil {
		return SignUpRequest{}, err
	}
	r.Profile.Gender = model.Gender(g)
	return r, nil
}

// CredentialsToStruct encodes a SignIn request.
func CredentialsToStruct(email, password string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEmail:    structpb.NewStringValue(email),
		FieldPassword: structpb.NewStringValue(password),
	}}
}

// CredentialsFromStruct decodes email and password.
func CredentialsFromStruct(s *structpb.Struct) (email, password string, err error) {
	if email, err = str(s, FieldEmail); err != nil {
		return "", "", err
	}
	if password, err = str(s, FieldPassword); err != nil {
		return "", "", err
	}
	return email, password, nil
}

// ProfileUpdateToStruct encodes only the fields set in upd.
func ProfileUpdateToStruct(upd model.ProfileUpdate) *structpb.Struct {
	f := map[string]*structpb.Value{}
	if upd.Name != nil {
		f[FieldName] = structpb.NewStringValue(*upd.Name)
	}
	if upd.Age != nil {
		f[FieldAge] = structpb.NewNumberValue(float64(*upd.Age))
	}
	if upd.Gender != nil {
		f[FieldGender] = structpb.NewStringValue(string(*upd.Gender))
	}
	return &structpb.Struct{Fields: f}
}

// ProfileUpdateFromStruct decodes a partial profile. Absent fields stay nil.
func ProfileUpdateFromStruct(s *structpb.Struct) (model.ProfileUpdate, error) {
	var upd model.ProfileUpdate
	if _, ok := field(s, FieldName); ok {
		name, err := str(s, FieldName)
		if err != nil {
			return model.ProfileUpdate{}, err
		}
		upd.Name = &name
	}
	age, ok, err := integer(s, FieldAge)
	if err != nil {
		return model.ProfileUpdate{}, err
	}
	if ok {
		upd.Age = &age
	}
	if _, ok := field(s, FieldGender); ok {
		g, err := str(s, FieldGender)
		if err != nil {
			return model.ProfileUpdate{}, err
		}
		gender := model.Gender(g)
		upd.Gender = &gender
	}
	return upd, nil
}

// UserResponseToStruct wraps u as {"user": {...}}.
func UserResponseToStruct(u model.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldUser: structpb.NewStructValue(UserToStruct(u)),
	}}
}

// UserResponseFromStruct unwraps {"user": {...}}.
func UserResponseFromStruct(s *structpb.Struct) (model.User, error) {
	us, err := object(s, FieldUser)
	if err != nil {
		return model.User{}, err
	}
	return UserFromStruct(us)
}

// --- Records ---

// RecordToStruct encodes a record. Values must be JSON-like.
func RecordToStruct(r model.Record) (*structpb.Struct, error) {
	m := make(map[string]any, len(r))
	for k, v := range r {
		m[k] = model.Normalize(v)
	}
	return structpb.NewStruct(m)
}

// RecordFromStruct decodes a record; numbers become float64.
func RecordFromStruct(s *structpb.Struct) model.Record {
	return model.Record(s.AsMap())
}

// InsertToStruct encodes an Insert request.
func InsertToStruct(table string, r model.Record) (*structpb.Struct, error) {
	rs, err := RecordToStruct(r)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTable:  structpb.NewStringValue(table),
		FieldRecord: structpb.NewStructValue(rs),
	}}, nil
}

// InsertFromStruct decodes an Insert request.
func InsertFromStruct(s *structpb.Struct) (string, model.Record, error) {
	table, err := str(s, FieldTable)
	if err != nil {
		return "", nil, err
	}
	rs, err := object(s, FieldRecord)
	if err != nil {
		return "", nil, err
	}
	return table, RecordFromStruct(rs), nil
}

// SelectToStruct encodes a Select request.
func SelectToStruct(table string, f model.Filter) (*structpb.Struct, error) {
	eq, err := structpb.NewValue(model.Normalize(f.EqualsValue))
	if err != nil {
		return nil, fmt.Errorf("eq_value: %w", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldTable:       structpb.NewStringValue(table),
		FieldEqColumn:    structpb.NewStringValue(f.EqualsColumn),
		FieldEqValue:     eq,
		FieldOrderColumn: structpb.NewStringValue(f.OrderColumn),
		FieldAscending:   structpb.NewBoolValue(f.Ascending),
	}}, nil
}

// SelectFromStruct decodes a Select request.
func SelectFromStruct(s *structpb.Struct) (string, model.Filter, error) {
	var (
		table string
		f     model.Filter
		err   error
	)
	if table, err = str(s, FieldTable); err != nil {
		return "", model.Filter{}, err
	}
	if f.EqualsColumn, err = str(s, FieldEqColumn); err != nil {
		return "", model.Filter{}, err
	}
	if v, ok := field(s, FieldEqValue); ok {
		f.EqualsValue = v.AsInterface()
	}
	if f.OrderColumn, err = str(s, FieldOrderColumn); err != nil {
		return "", model.Filter{}, err
	}
	if v, ok := field(s, FieldAscending); ok {
		bv, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return "", model.Filter{}, fmt.Errorf("%w: %s: want bool", ErrMalformed, FieldAscending)
		}
		f.Ascending = bv.BoolValue
	}
	return table, f, nil
}

// RecordsToStruct encodes a Select response.
func RecordsToStruct(rows []model.Record) (*structpb.Struct, error) {
	list := make([]*structpb.Value, 0, len(rows))
	for i, r := range rows {
		rs, err := RecordToStruct(r)
		if err != nil {
			return nil, fmt.Errorf("record[%d]: %w", i, err)
		}
		list = append(list, structpb.NewStructValue(rs))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldRecords: structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

// RecordsFromStruct decodes a Select response. A missing list is empty.
func RecordsFromStruct(s *structpb.Struct) ([]model.Record, error) {
	out := []model.Record{}
	v, ok := field(s, FieldRecords)
	if !ok {
		return out, nil
	}
	lv, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s: want list", ErrMalformed, FieldRecords)
	}
	for i, item := range lv.ListValue.GetValues() {
		sv, ok := item.GetKind().(*structpb.Value_StructValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d]: want object", ErrMalformed, FieldRecords, i)
		}
		out = append(out, RecordFromStruct(sv.StructValue))
	}
	return out, nil
}
