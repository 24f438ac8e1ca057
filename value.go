package formdispenser

// Value returns the first stored value of key. Parts handed to a hook are
// not stored.
func (p *Parser) Value(key string) (string, Header, bool) {
	value := p.valueMap[key]
	if len(value) == 0 {
		return "", Header{}, false
	}

	content, header := value[0].Unwrap()

	return content, header, true
}

// ValueRaw is Value without the string conversion.
func (p *Parser) ValueRaw(key string) ([]byte, Header, bool) {
	value := p.valueMap[key]
	if len(value) == 0 {
		return nil, Header{}, false
	}

	content, header := value[0].UnwrapRaw()

	return content, header, true
}

// Values returns the stored values of key in body order.
func (p *Parser) Values(key string) ([]Value, bool) {
	value, ok := p.valueMap[key]
	if !ok {
		return nil, false
	}

	return value, true
}

// ValueMap returns every stored value by name.
func (p *Parser) ValueMap() map[string][]Value {
	return p.valueMap
}

// Preamble returns the text before the first boundary, or "".
func (p *Parser) Preamble() string {
	return p.preamble
}

// Epilogue returns the text after the final boundary, or "".
func (p *Parser) Epilogue() string {
	return p.epilogue
}
