package client

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strconv"

	"github.com/star/horizons/internal/horizons"
	"github.com/star/horizons/internal/metrics"
)

// Product names used for metrics and logs.
const (
	ProductBodies     = "bodies"
	ProductVectors    = "vectors"
	ProductElements   = "elements"
	ProductProperties = "properties"
)

// quote wraps a parameter value in the single quotes Horizons expects.
func quote(v string) string {
	return "'" + v + "'"
}

func bodiesParams() url.Values {
	return url.Values{
		"COMMAND": {quote("MB")},
	}
}

func (c *Client) ephemerisParams(id int, ephemType string, w Window) url.Values {
	p := url.Values{
		"COMMAND":    {quote(strconv.Itoa(id))},
		"OBJ_DATA":   {quote("NO")},
		"MAKE_EPHEM": {quote("YES")},
		"EPHEM_TYPE": {quote(ephemType)},
		"CENTER":     {quote(c.cfg.Center)},
		"START_TIME": {quote(w.Start.UTC().Format(timeLayout))},
		"STOP_TIME":  {quote(w.Stop.UTC().Format(timeLayout))},
		"CSV_FORMAT": {quote("NO")},
	}
	if w.Step != "" {
		p.Set("STEP_SIZE", quote(w.Step))
	}
	return p
}

func propertiesParams(id int) url.Values {
	return url.Values{
		"COMMAND":    {quote(strconv.Itoa(id))},
		"OBJ_DATA":   {quote("YES")},
		"MAKE_EPHEM": {quote("NO")},
	}
}

// Bodies fetches the major body catalog.
func (c *Client) Bodies(ctx context.Context) ([]horizons.Body, error) {
	text, err := c.Query(ctx, ProductBodies, bodiesParams())
	if err != nil {
		return nil, err
	}

	var bodies []horizons.Body
	for b := range horizons.Bodies(horizons.SplitLines(text)) {
		bodies = append(bodies, b)
	}
	metrics.AddRecordsDecoded(ProductBodies, len(bodies))
	c.logger.Debug("decoded bodies", "count", len(bodies))
	return bodies, nil
}

// Vectors fetches position and velocity vectors of body id. On a malformed
// record the items decoded before it are returned together with the error.
func (c *Client) Vectors(ctx context.Context, id int, w Window) ([]horizons.VectorItem, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	params := c.ephemerisParams(id, "VECTORS", w)
	// Table 3 adds the LT/RG/RR line, giving the three line record layout.
	params.Set("VEC_TABLE", quote("3"))

	text, err := c.Query(ctx, ProductVectors, params)
	if err != nil {
		return nil, err
	}
	return collect(c, ProductVectors, id, horizons.Vectors(horizons.SplitLines(text)))
}

// Elements fetches osculating orbital elements of body id.
func (c *Client) Elements(ctx context.Context, id int, w Window) ([]horizons.OrbitalElementsItem, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	text, err := c.Query(ctx, ProductElements, c.ephemerisParams(id, "ELEMENTS", w))
	if err != nil {
		return nil, err
	}
	return collect(c, ProductElements, id, horizons.Elements(horizons.SplitLines(text)))
}

// Properties fetches the object data block of body id and decodes its mass.
// horizons.ErrPropertyNotFound is returned for bodies without one.
func (c *Client) Properties(ctx context.Context, id int) (horizons.Properties, error) {
	text, err := c.Query(ctx, ProductProperties, propertiesParams(id))
	if err != nil {
		return horizons.Properties{}, err
	}
	props, err := horizons.ParseProperties(horizons.SplitLines(text))
	if err != nil {
		return horizons.Properties{}, fmt.Errorf("decoding properties of %d: %w", id, err)
	}
	metrics.AddRecordsDecoded(ProductProperties, 1)
	return props, nil
}

func collect[T any](c *Client, product string, id int, seq iter.Seq2[T, error]) ([]T, error) {
	var items []T
	for item, err := range seq {
		if err != nil {
			metrics.IncRecordsMalformed(product)
			c.logger.Warn("malformed record", "product", product, "body_id", id, "decoded", len(items), "error", err)
			metrics.AddRecordsDecoded(product, len(items))
			return items, fmt.Errorf("decoding %s of %d: %w", product, id, err)
		}
		items = append(items, item)
	}
	metrics.AddRecordsDecoded(product, len(items))
	c.logger.Debug("decoded records", "product", product, "body_id", id, "count", len(items))
	return items, nil
}
