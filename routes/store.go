package routes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mbolis/geo-survey/model"
)

var errNotFound = errors.New("not found")

type queryer interface {
	sqlx.QueryerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func getQuestionnaire(ctx context.Context, db queryer, id int) (q model.Questionnaire, err error) {
	err = db.GetContext(ctx, &q, `
		SELECT id, owner_id, title, description, password
		FROM questionnaire
		WHERE id = ?`,
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return q, errNotFound
	}
	if err != nil {
		return
	}

	q.Elements = []model.FieldDef{}
	err = db.SelectContext(ctx, &q.Elements, `
		SELECT id, questionnaire_id, label, field_type
		FROM question_element
		WHERE questionnaire_id = ?
		ORDER BY position`,
		id,
	)
	return
}

// loadElements fills the elements of many questionnaires with one query.
func loadElements(ctx context.Context, db queryer, qs []model.Questionnaire) error {
	if len(qs) == 0 {
		return nil
	}

	ids := make([]int, len(qs))
	byID := make(map[int]*model.Questionnaire, len(qs))
	for i := range qs {
		ids[i] = qs[i].ID
		qs[i].Elements = []model.FieldDef{}
		byID[qs[i].ID] = &qs[i]
	}

	query, args, err := sqlx.In(`
		SELECT id, questionnaire_id, label, field_type
		FROM question_element
		WHERE questionnaire_id IN (?)
		ORDER BY questionnaire_id, position`,
		ids,
	)
	if err != nil {
		return err
	}

	var elements []model.FieldDef
	err = db.SelectContext(ctx, &elements, query, args...)
	if err != nil {
		return err
	}
	for _, e := range elements {
		q := byID[e.QuestionnaireID]
		q.Elements = append(q.Elements, e)
	}
	return nil
}

const dataObjectColumns = `
	d.id, d.questionnaire_id, d.submitter_name, d.submission_date,
	d.latitude, d.longitude, d.data_values, d.additional_info`

// getOwnedDataObject finds a record belonging to one of ownerID's questionnaires.
func getOwnedDataObject(ctx context.Context, db queryer, id, ownerID int) (obj model.DataObject, err error) {
	err = db.GetContext(ctx, &obj, `
		SELECT `+dataObjectColumns+`
		FROM data_object d
		INNER JOIN questionnaire q ON (q.id = d.questionnaire_id)
		WHERE d.id = ?
			AND q.owner_id = ?`,
		id,
		ownerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		err = errNotFound
	}
	return
}

func insertDataObject(ctx context.Context, tx *sqlx.Tx, questionnaireID int, obj model.DataObjectCreate) (id int, err error) {
	err = tx.QueryRowContext(ctx, `
		INSERT INTO data_object (
			questionnaire_id, submitter_name, submission_date,
			latitude, longitude, data_values, additional_info
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		questionnaireID,
		obj.SubmitterName,
		time.Now().UTC(),
		obj.Latitude,
		obj.Longitude,
		obj.DataValues,
		obj.AdditionalInfo,
	).Scan(&id)
	return
}

func getDataObject(ctx context.Context, db queryer, id int) (obj model.DataObject, err error) {
	err = db.GetContext(ctx, &obj, `SELECT `+dataObjectColumns+` FROM data_object d WHERE d.id = ?`, id)
	return
}

func listFavorites(ctx context.Context, db queryer, userID int) (favorites []model.DataObject, err error) {
	favorites = []model.DataObject{}
	err = db.SelectContext(ctx, &favorites, `
		SELECT `+dataObjectColumns+`
		FROM favorite f
		INNER JOIN data_object d ON (d.id = f.data_object_id)
		WHERE f.user_id = ?
		ORDER BY d.id`,
		userID,
	)
	return
}
