// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package translatable

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/olegiv/translatables/internal/i18n"
)

// Host is the entity an Overlay belongs to.
type Host interface {
	// TranslationKey returns the primary key, or 0 while the entity is unsaved.
	TranslationKey() int64
}

// Toucher is implemented by hosts that want to know when a commit bumped
// their update timestamp.
type Toucher interface {
	Touched(at time.Time)
}

// Overlay holds the translation state of one entity instance.
// It must not be shared between goroutines or entities.
type Overlay struct {
	model        *Model
	host         Host
	translations Translations // nil until loaded
	original     Translations
	dirty        bool
	outputLocale string
}

// New returns an unloaded overlay for host.
func New(m *Model, host Host) *Overlay {
	return &Overlay{model: m, host: host}
}

// Model returns the overlay's model.
func (o *Overlay) Model() *Model { return o.model }

// Loaded reports whether translations have been read or attached.
func (o *Overlay) Loaded() bool { return o.translations != nil }

// IsDirty reports whether a write happened since the last load or commit.
func (o *Overlay) IsDirty() bool { return o.dirty }

// Attach installs t as the clean, loaded state.
func (o *Overlay) Attach(t Translations) {
	if t == nil {
		t = Translations{}
	}
	o.translations = t.Clone()
	o.original = t.Clone()
	o.dirty = false
}

func (o *Overlay) load(ctx context.Context) error {
	if o.translations != nil {
		return nil
	}
	key := o.host.TranslationKey()
	if key == 0 {
		o.Attach(nil)
		return nil
	}
	all, err := o.model.fetch(ctx, []int64{key})
	if err != nil {
		return err
	}
	o.Attach(all[key])
	return nil
}

// Translatables returns a copy of every locale's values, loading them first.
func (o *Overlay) Translatables(ctx context.Context) (Translations, error) {
	if err := o.load(ctx); err != nil {
		return nil, err
	}
	return o.translations.Clone(), nil
}

// Translatable returns all attributes for locale. Attributes without a
// stored value are "". An empty locale means the request locale of ctx.
func (o *Overlay) Translatable(ctx context.Context, locale string) (Row, error) {
	if locale == "" {
		locale = o.model.locales.Current(ctx)
	}
	if err := o.load(ctx); err != nil {
		return nil, err
	}
	row := o.model.emptyRow()
	maps.Copy(row, o.translations[locale])
	return row, nil
}

// TranslatedLocales returns attr for every accepted locale, in configured
// order, with the model's Transform applied.
func (o *Overlay) TranslatedLocales(ctx context.Context, attr string) (Set, error) {
	if !o.model.IsTranslatableAttribute(attr) {
		return Set{}, fmt.Errorf("%w: %q", ErrInvalidAttribute, attr)
	}
	if err := o.load(ctx); err != nil {
		return Set{}, err
	}

	locales := o.model.locales.Locales()
	values := make(map[string]any, len(locales))
	for _, locale := range locales {
		v, ok := o.translations[locale][attr]
		if !ok {
			v = ""
		}
		if o.model.transform != nil {
			v = o.model.transform(attr, v)
		}
		values[locale] = v
	}

	set := Set{values: values, locale: o.model.locales.Current(ctx)}
	if out := o.effectiveOutputLocale(ctx); out != "" {
		set.output = out
	}
	return set, nil
}

// Get is the typed accessor for a translatable attribute.
func (o *Overlay) Get(ctx context.Context, attr string) (Set, error) {
	return o.TranslatedLocales(ctx, attr)
}

// SetTranslation sets attr for locale. A nil value is stored as "".
func (o *Overlay) SetTranslation(ctx context.Context, locale, attr string, value any) error {
	if !o.model.locales.IsSupported(locale) {
		return fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	if !o.model.IsTranslatableAttribute(attr) {
		return fmt.Errorf("%w: %q", ErrInvalidAttribute, attr)
	}
	if err := o.load(ctx); err != nil {
		return err
	}

	o.dirty = true

	row, ok := o.translations[locale]
	if !ok {
		// Clearing a locale that holds nothing changes nothing.
		if value == nil || value == "" {
			return nil
		}
		row = o.model.emptyRow()
		o.translations[locale] = row
	}
	if value == nil {
		value = ""
	}
	row[attr] = value
	return nil
}

// SetTranslations sets several attributes of one locale.
func (o *Overlay) SetTranslations(ctx context.Context, locale string, values map[string]any) error {
	for _, attr := range slices.Sorted(maps.Keys(values)) {
		if err := o.SetTranslation(ctx, locale, attr, values[attr]); err != nil {
			return err
		}
	}
	return nil
}

// SetAllLocales sets attr to value in every accepted locale.
func (o *Overlay) SetAllLocales(ctx context.Context, attr string, value any) (Set, error) {
	for _, locale := range o.model.locales.Locales() {
		if err := o.SetTranslation(ctx, locale, attr, value); err != nil {
			return Set{}, err
		}
	}
	return o.TranslatedLocales(ctx, attr)
}

// SetAllTranslations replaces the whole working set and marks it dirty.
func (o *Overlay) SetAllTranslations(t Translations) {
	if t == nil {
		t = Translations{}
	}
	o.translations = t.Clone()
	o.dirty = true
}

// Assign is the typed setter for a translatable attribute. A Set or a
// locale map writes every accepted locale, clearing the ones it lacks.
// Any other value is written to locale, or to the request locale when
// locale is empty.
func (o *Overlay) Assign(ctx context.Context, attr string, value any, locale string) error {
	var (
		perLocale map[string]any
		isMap     = true
	)
	switch v := value.(type) {
	case Set:
		perLocale = v.values
	case map[string]any:
		perLocale = v
	case map[string]string:
		perLocale = make(map[string]any, len(v))
		for k, s := range v {
			perLocale[k] = s
		}
	default:
		isMap = false
	}

	if isMap {
		for _, l := range o.model.locales.Locales() {
			if err := o.SetTranslation(ctx, l, attr, perLocale[l]); err != nil {
				return err
			}
		}
		return nil
	}

	if locale == "" {
		locale = o.model.locales.Current(ctx)
	}
	return o.SetTranslation(ctx, locale, attr, value)
}

// AfterSave commits pending translations. Hosts call it once their own
// row has been written and has a key.
func (o *Overlay) AfterSave(ctx context.Context) error {
	return o.Commit(ctx)
}

// Commit writes every locale of the working set in one transaction:
// locales whose values concatenate to "" are deleted, the rest upserted.
// It does nothing unless the overlay is dirty and non-empty.
func (o *Overlay) Commit(ctx context.Context) error {
	if !o.dirty || len(o.translations) == 0 {
		return nil
	}
	key := o.host.TranslationKey()
	if key == 0 {
		return ErrUnsavedHost
	}

	m := o.model
	cols, err := m.existingColumns(ctx)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting translation commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locales := m.orderedLocales(o.translations)
	var removed []string
	for _, locale := range locales {
		row := o.translations[locale]
		if concat(row) == "" {
			if err := m.deleteLocale(ctx, tx, key, locale); err != nil {
				return err
			}
			removed = append(removed, locale)
			continue
		}
		if err := m.upsertLocale(ctx, tx, key, locale, cols, row); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing translations: %w", err)
	}

	for _, locale := range removed {
		delete(o.translations, locale)
	}
	o.original = o.translations.Clone()
	o.dirty = false

	if err := o.touch(ctx, key); err != nil {
		return err
	}

	m.logger.Debug("translations committed",
		"table", m.side, "key", key, "locales", len(locales), "deleted", len(removed))
	return nil
}

func (m *Model) deleteLocale(ctx context.Context, tx *sql.Tx, key int64, locale string) error {
	q := "DELETE FROM " + m.dialect.Quote(m.side) +
		" WHERE " + m.dialect.Quote(m.key) + " = ? AND " + m.dialect.Quote(m.localeCol) + " = ?"
	if _, err := tx.ExecContext(ctx, m.dialect.Rebind(q), key, locale); err != nil {
		return fmt.Errorf("deleting %s row %d/%s: %w", m.side, key, locale, err)
	}
	return nil
}

func (m *Model) upsertLocale(ctx context.Context, tx *sql.Tx, key int64, locale string, cols []string, row Row) error {
	args := make([]any, 0, len(cols)+2)
	args = append(args, key, locale)
	for _, c := range cols {
		v, ok := row[c]
		if !ok || v == nil {
			v = ""
		}
		args = append(args, v)
	}
	q := m.dialect.Upsert(m.side, []string{m.key, m.localeCol}, cols)
	if _, err := tx.ExecContext(ctx, m.dialect.Rebind(q), args...); err != nil {
		return fmt.Errorf("writing %s row %d/%s: %w", m.side, key, locale, err)
	}
	return nil
}

// touch bumps the host's update timestamp with a direct UPDATE so the
// host's own save path does not run again.
func (o *Overlay) touch(ctx context.Context, key int64) error {
	m := o.model
	if m.updatedAt == "" {
		return nil
	}
	now := m.now().UTC()
	q := "UPDATE " + m.dialect.Quote(m.table) + " SET " + m.dialect.Quote(m.updatedAt) +
		" = ? WHERE " + m.dialect.Quote(m.key) + " = ?"
	if _, err := m.db.ExecContext(ctx, m.dialect.Rebind(q), now, key); err != nil {
		return fmt.Errorf("touching %s %d: %w", m.table, key, err)
	}
	if t, ok := o.host.(Toucher); ok {
		t.Touched(now)
	}
	return nil
}

// BeforeDelete removes the side rows unless the model soft-deletes.
// Hosts call it before deleting their own row.
func (o *Overlay) BeforeDelete(ctx context.Context) error {
	if o.model.softDeletes {
		return nil
	}
	return o.DeleteTranslations(ctx)
}

// DeleteTranslations removes every side row of the host.
func (o *Overlay) DeleteTranslations(ctx context.Context) error {
	key := o.host.TranslationKey()
	if key != 0 {
		m := o.model
		q := "DELETE FROM " + m.dialect.Quote(m.side) + " WHERE " + m.dialect.Quote(m.key) + " = ?"
		if _, err := m.db.ExecContext(ctx, m.dialect.Rebind(q), key); err != nil {
			return fmt.Errorf("deleting %s rows of %d: %w", m.side, key, err)
		}
	}
	o.Attach(nil)
	return nil
}

// DirtyTranslations returns attribute -> locale -> value for every value
// that differs from the loaded snapshot.
func (o *Overlay) DirtyTranslations() map[string]map[string]any {
	dirty := map[string]map[string]any{}
	for locale, row := range o.translations {
		orig := o.original[locale]
		for attr, v := range row {
			if ov, ok := orig[attr]; ok && stringify(ov) == stringify(v) {
				continue
			}
			if dirty[attr] == nil {
				dirty[attr] = map[string]any{}
			}
			dirty[attr][locale] = v
		}
	}
	return dirty
}

// OriginalTranslation returns the loaded value of attr in locale, or def.
func (o *Overlay) OriginalTranslation(locale, attr string, def any) any {
	if v, ok := o.original[locale][attr]; ok {
		return v
	}
	return def
}

// ActiveLocales returns the locales that hold data, accepted ones first.
func (o *Overlay) ActiveLocales(ctx context.Context) ([]string, error) {
	if err := o.load(ctx); err != nil {
		return nil, err
	}
	return o.model.orderedLocales(o.translations), nil
}

// SetOutputLocale makes AttributesMap flatten translated attributes to
// locale. An empty locale restores full sets.
func (o *Overlay) SetOutputLocale(locale string) error {
	if locale != "" && !o.model.locales.IsSupported(locale) {
		return fmt.Errorf("%w: %q", ErrInvalidLocale, locale)
	}
	o.outputLocale = locale
	return nil
}

// OutputLocale returns the locale set with SetOutputLocale.
func (o *Overlay) OutputLocale() string { return o.outputLocale }

func (o *Overlay) effectiveOutputLocale(ctx context.Context) string {
	if o.outputLocale != "" {
		return o.outputLocale
	}
	if l, ok := i18n.OutputLocaleFromContext(ctx); ok {
		return l
	}
	return ""
}

// AttributesMap returns every localizable attribute, as a Set or as the
// output locale's string when one applies.
func (o *Overlay) AttributesMap(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(o.model.localizable))
	output := o.effectiveOutputLocale(ctx)
	for _, attr := range o.model.localizable {
		set, err := o.TranslatedLocales(ctx, attr)
		if err != nil {
			return nil, err
		}
		if output != "" {
			out[attr] = set.Get(output)
		} else {
			out[attr] = set
		}
	}
	return out, nil
}

// Replicate returns a dirty overlay for host carrying a copy of this
// overlay's translations. Saving host writes them under its new key.
func (o *Overlay) Replicate(ctx context.Context, host Host) (*Overlay, error) {
	if err := o.load(ctx); err != nil {
		return nil, err
	}
	n := New(o.model, host)
	n.SetAllTranslations(o.translations)
	n.outputLocale = o.outputLocale
	return n, nil
}
