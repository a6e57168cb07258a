package util

import (
	"encoding/binary"
	"github.com/pkg/errors"
	"math"
	"reflect"
)

type Datatype int

const (
	DatatypeByte Datatype = iota
	DatatypeInt16
	DatatypeInt24
	DatatypeInt32
	DatatypeInt64
	DatatypeFloat32
	DatatypeFloat64
	DatatypeString // 32 bit length followed by the UTF-8 bytes
)

// BinaryItem describes how one part of a struct is written to and read from a byte slice. The returned integer is
// always the index right behind the written or read data.
type BinaryItem interface {
	Size(object any) (int, error)
	Write(object any, data []byte, index int) (int, error)
	Read(object any, data []byte, index int) (int, error)
}

type BinarySchema struct {
	Items []BinaryItem // All items of this object schema. They are written and read in the given order.
}

// Size returns the number of bytes the given object needs when written with this schema.
func (b *BinarySchema) Size(object any) (int, error) {
	size := 0
	for _, item := range b.Items {
		itemSize, err := item.Size(object)
		if err != nil {
			return -1, err
		}
		size += itemSize
	}
	return size, nil
}

// Marshal allocates a byte slice of the correct size and writes the object into it.
func (b *BinarySchema) Marshal(object any) ([]byte, error) {
	size, err := b.Size(object)
	if err != nil {
		return nil, err
	}

	data := make([]byte, size)
	_, err = b.Write(object, data, 0)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BinarySchema) Write(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Write(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

// Read fills the given object, which must be a pointer to a struct.
func (b *BinarySchema) Read(object any, data []byte, index int) (int, error) {
	var err error

	for _, item := range b.Items {
		index, err = item.Read(object, data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

type BinaryDataItem struct {
	FieldName  string   // Name of the golang struct field.
	BinaryType Datatype // Type this field should be stored to. This has to be compatible with the FieldType.
}

func (b *BinaryDataItem) Size(object any) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return binaryValueSize(b.BinaryType, b.FieldName, field)
}

func (b *BinaryDataItem) Write(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return writeBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

func (b *BinaryDataItem) Read(object any, data []byte, index int) (int, error) {
	field := reflect.Indirect(reflect.ValueOf(object)).FieldByName(b.FieldName)
	return readBinaryValue(b.BinaryType, b.FieldName, field, data, index)
}

// BinaryRawCollectionItem represents the simple schema for array of e.g. integers. It also stores the size of the array as 32 bit integer.
type BinaryRawCollectionItem struct {
	FieldName  string   // Name of the golang struct slice.
	BinaryType Datatype // Type this field should be stored to. This has to be compatible with the FieldType.
}

func (b *BinaryRawCollectionItem) Size(object any) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	size := 4
	for i := 0; i < collection.Len(); i++ {
		elementSize, err := binaryValueSize(b.BinaryType, b.FieldName, collection.Index(i))
		if err != nil {
			return -1, err
		}
		size += elementSize
	}
	return size, nil
}

func (b *BinaryRawCollectionItem) Write(object any, data []byte, index int) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	binary.LittleEndian.PutUint32(data[index:], uint32(collection.Len()))
	index += 4

	for i := 0; i < collection.Len(); i++ {
		index, err = writeBinaryValue(b.BinaryType, b.FieldName, collection.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinaryRawCollectionItem) Read(object any, data []byte, index int) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	length, index, err := readCollectionLength(b.FieldName, data, index)
	if err != nil {
		return -1, err
	}

	slice := reflect.MakeSlice(collection.Type(), length, length)
	collection.Set(slice)

	for i := 0; i < length; i++ {
		index, err = readBinaryValue(b.BinaryType, b.FieldName, slice.Index(i), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

// BinaryCollectionItem represents the simple schema for array of structs.
type BinaryCollectionItem struct {
	FieldName  string       // Name of the golang struct slice.
	ItemSchema BinarySchema // Schema of the item in this collection
}

func (b *BinaryCollectionItem) Size(object any) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	size := 4
	for i := 0; i < collection.Len(); i++ {
		elementSize, err := b.ItemSchema.Size(collection.Index(i).Interface())
		if err != nil {
			return -1, err
		}
		size += elementSize
	}
	return size, nil
}

func (b *BinaryCollectionItem) Write(object any, data []byte, index int) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	binary.LittleEndian.PutUint32(data[index:], uint32(collection.Len()))
	index += 4

	for i := 0; i < collection.Len(); i++ {
		index, err = b.ItemSchema.Write(collection.Index(i).Interface(), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func (b *BinaryCollectionItem) Read(object any, data []byte, index int) (int, error) {
	collection, err := getCollectionField(object, b.FieldName)
	if err != nil {
		return -1, err
	}

	length, index, err := readCollectionLength(b.FieldName, data, index)
	if err != nil {
		return -1, err
	}

	slice := reflect.MakeSlice(collection.Type(), length, length)
	collection.Set(slice)

	for i := 0; i < length; i++ {
		// Addr() makes the slice element settable for the nested schema.
		index, err = b.ItemSchema.Read(slice.Index(i).Addr().Interface(), data, index)
		if err != nil {
			return -1, err
		}
	}

	return index, nil
}

func getCollectionField(object any, fieldName string) (reflect.Value, error) {
	collection := reflect.Indirect(reflect.ValueOf(object)).FieldByName(fieldName)
	if collection.Kind() != reflect.Slice && collection.Kind() != reflect.Array {
		return reflect.Value{}, errors.Errorf("Unsupported type given to collection item (type=%v, field=%s). Only slices and array are supported.", collection.Kind(), fieldName)
	}
	return collection, nil
}

func readCollectionLength(fieldName string, data []byte, index int) (int, int, error) {
	if index+4 > len(data) {
		return -1, -1, errors.Errorf("Data ended at index %d while reading length of collection %s", index, fieldName)
	}
	length := int(binary.LittleEndian.Uint32(data[index:]))
	index += 4

	// Each element needs at least one byte, everything else hints to corrupt data.
	if length > len(data)-index {
		return -1, -1, errors.Errorf("Invalid length %d of collection %s at index %d, only %d bytes left", length, fieldName, index, len(data)-index)
	}
	return length, index, nil
}

func binaryValueSize(binaryType Datatype, fieldName string, value reflect.Value) (int, error) {
	switch binaryType {
	case DatatypeByte:
		return 1, nil
	case DatatypeInt16:
		return 2, nil
	case DatatypeInt24:
		return 3, nil
	case DatatypeInt32, DatatypeFloat32:
		return 4, nil
	case DatatypeInt64, DatatypeFloat64:
		return 8, nil
	case DatatypeString:
		if value.Kind() != reflect.String {
			return -1, errors.Errorf("Field %s has kind %s but string datatype requires a string", fieldName, value.Kind())
		}
		return 4 + len(value.String()), nil
	}
	return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
}

func writeBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	switch binaryType {
	case DatatypeByte:
		data[index] = byte(getUint64FromValue(value))
		index += 1
	case DatatypeInt16:
		binary.LittleEndian.PutUint16(data[index:], uint16(getUint64FromValue(value)))
		index += 2
	case DatatypeInt24:
		v := getUint64FromValue(value)
		data[index] = byte(v)
		data[index+1] = byte(v >> 8)
		data[index+2] = byte(v >> 16)
		index += 3
	case DatatypeInt32:
		binary.LittleEndian.PutUint32(data[index:], uint32(getUint64FromValue(value)))
		index += 4
	case DatatypeInt64:
		binary.LittleEndian.PutUint64(data[index:], getUint64FromValue(value))
		index += 8
	case DatatypeFloat32:
		binary.LittleEndian.PutUint32(data[index:], math.Float32bits(float32(value.Float())))
		index += 4
	case DatatypeFloat64:
		binary.LittleEndian.PutUint64(data[index:], math.Float64bits(value.Float()))
		index += 8
	case DatatypeString:
		s := value.String()
		binary.LittleEndian.PutUint32(data[index:], uint32(len(s)))
		index += 4
		index += copy(data[index:], s)
	default:
		return -1, errors.Errorf("Unsupported datatype %d for field %s", binaryType, fieldName)
	}
	return index, nil
}

func readBinaryValue(binaryType Datatype, fieldName string, value reflect.Value, data []byte, index int) (int, error) {
	size, err := binaryValueSize(binaryType, fieldName, value)
	if err != nil {
		return -1, err
	}
	if index+size > len(data) {
		return -1, errors.Errorf("Data ended at index %d while reading field %s", index, fieldName)
	}

	switch binaryType {
	case DatatypeByte:
		setInteger(value, uint64(data[index]), int64(data[index]))
		index += 1
	case DatatypeInt16:
		v := binary.LittleEndian.Uint16(data[index:])
		setInteger(value, uint64(v), int64(int16(v)))
		index += 2
	case DatatypeInt24:
		d := data[index:]
		v := uint32(d[0]) | uint32(d[1])<<8 | uint32(d[2])<<16
		setInteger(value, uint64(v), int64(v))
		index += 3
	case DatatypeInt32:
		v := binary.LittleEndian.Uint32(data[index:])
		setInteger(value, uint64(v), int64(int32(v)))
		index += 4
	case DatatypeInt64:
		v := binary.LittleEndian.Uint64(data[index:])
		setInteger(value, v, int64(v))
		index += 8
	case DatatypeFloat32:
		value.SetFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(data[index:]))))
		index += 4
	case DatatypeFloat64:
		value.SetFloat(math.Float64frombits(binary.LittleEndian.Uint64(data[index:])))
		index += 8
	case DatatypeString:
		length := int(binary.LittleEndian.Uint32(data[index:]))
		index += 4
		if index+length > len(data) {
			return -1, errors.Errorf("Invalid string length %d of field %s at index %d", length, fieldName, index)
		}
		value.SetString(string(data[index : index+length]))
		index += length
	}

	return index, nil
}

// setInteger sets the unsigned or signed variant of the read value depending on the kind of the target field.
func setInteger(value reflect.Value, unsigned uint64, signed int64) {
	switch value.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value.SetUint(unsigned)
	default:
		value.SetInt(signed)
	}
}

func getUint64FromValue(value reflect.Value) uint64 {
	switch value.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return uint64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value.Uint()
	}
	panic("Unsupported value type " + value.Kind().String() + " to convert to uint.")
}
