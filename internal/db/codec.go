package db

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// NewRegistry returns the default bson registry extended with a
// decimal.Decimal <-> Decimal128 codec, so amounts keep exact precision and
// $inc/$gte operate numerically on the server.
func NewRegistry() *bsoncodec.Registry {
	registry := bson.NewRegistry()
	registry.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	registry.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return registry
}

// ToDecimal128 converts an amount into its bson representation.
func ToDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to decimal128: %w", d.String(), err)
	}
	return dec, nil
}

// FromDecimal128 converts a stored Decimal128 back into an amount.
func FromDecimal128(dec primitive.Decimal128) (decimal.Decimal, error) {
	if dec.IsNaN() || dec.IsInf() != 0 {
		return decimal.Zero, fmt.Errorf("invalid decimal128 value %s", dec.String())
	}
	bi, exp, err := dec.BigInt()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(bi, int32(exp)), nil
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}

	dec, err := ToDecimal128(val.Interface().(decimal.Decimal))
	if err != nil {
		return err
	}
	return vw.WriteDecimal128(dec)
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}

	var (
		result decimal.Decimal
		err    error
	)
	switch vr.Type() {
	case bsontype.Decimal128:
		var dec primitive.Decimal128
		dec, err = vr.ReadDecimal128()
		if err == nil {
			result, err = FromDecimal128(dec)
		}
	case bsontype.Int32:
		var i int32
		i, err = vr.ReadInt32()
		result = decimal.NewFromInt32(i)
	case bsontype.Int64:
		var i int64
		i, err = vr.ReadInt64()
		result = decimal.NewFromInt(i)
	case bsontype.Double:
		var f float64
		f, err = vr.ReadDouble()
		result = decimal.NewFromFloat(f)
	case bsontype.String:
		var s string
		s, err = vr.ReadString()
		if err == nil {
			result, err = decimal.NewFromString(s)
		}
	case bsontype.Null:
		err = vr.ReadNull()
		result = decimal.Zero
	case bsontype.Undefined:
		err = vr.ReadUndefined()
		result = decimal.Zero
	default:
		return fmt.Errorf("cannot decode %v into decimal.Decimal", vr.Type())
	}
	if err != nil {
		return fmt.Errorf("failed to decode decimal: %w", err)
	}

	val.Set(reflect.ValueOf(result))
	return nil
}
