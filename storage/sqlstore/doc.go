// Package sqlstore is a query.Store backed by a SQL database through bun.
//
// Every index shares one table, documents, whose rows hold the index name,
// the document id and the document body as JSON text. Conditions are
// compiled to go-repository-bun select criteria reading body fields with
// json_extract on SQLite and the #>> operator on Postgres.
//
//	store, err := sqlstore.Open(sqlstore.DriverSQLite, "file:app.db")
//	if err != nil {
//		return err
//	}
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
//	repo := repository.New[*User](store)
//
// Documents are persisted through a go-repository-bun repository. Inserts
// rely on the (index_name, id) primary key to reject duplicates, and driver
// errors are mapped to go-errors values. Updates and deletes run in a
// transaction so the noop detection sees a consistent document.
package sqlstore
