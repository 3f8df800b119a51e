package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260715083000",
		up:      mig_20260715083000_pubsub_up,
		down:    mig_20260715083000_pubsub_down,
	})
}

func mig_20260715083000_pubsub_up(tx *sqlx.Tx) error {
	// Notify function sends "table_name:operation:user_id" so listeners can
	// invalidate per-user cached balances without re-reading the table.
	_, err := tx.Exec(`
		CREATE OR REPLACE FUNCTION notify_ledger_change()
		RETURNS TRIGGER AS $$
		DECLARE
			payload TEXT;
		BEGIN
			payload := TG_TABLE_NAME || ':' || TG_OP || ':' || COALESCE(NEW.user_id::text, OLD.user_id::text, '');
			PERFORM pg_notify('ledger_changes', payload);
			RETURN COALESCE(NEW, OLD);
		END;
		$$ LANGUAGE plpgsql;
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER credit_transactions_notify
		AFTER INSERT OR UPDATE OR DELETE ON credit_transactions
		FOR EACH ROW EXECUTE FUNCTION notify_ledger_change();
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TRIGGER invite_code_redemptions_notify
		AFTER INSERT OR UPDATE OR DELETE ON invite_code_redemptions
		FOR EACH ROW EXECUTE FUNCTION notify_ledger_change();
	`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260715083000_pubsub_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TRIGGER IF EXISTS credit_transactions_notify ON credit_transactions;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TRIGGER IF EXISTS invite_code_redemptions_notify ON invite_code_redemptions;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP FUNCTION IF EXISTS notify_ledger_change();`)
	if err != nil {
		return err
	}

	return nil
}
